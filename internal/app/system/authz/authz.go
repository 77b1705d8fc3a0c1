// Package authz answers role and ownership questions about the current
// request's user.
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), Mongo ObjectID, and a found
// flag. A missing user or malformed id yields "", NilObjectID, false, so
// ok=true always comes with a usable ObjectID.
func UserCtx(r *http.Request) (role string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Corrupt session; fail closed.
		return "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), userID, true
}

// HasAnyRole reports whether the current user has any of the given roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// IsOrganizer reports whether the current user may manage events.
func IsOrganizer(r *http.Request) bool { return HasAnyRole(r, models.RoleOrganizer) }

// CanScan reports whether the current user may validate tickets.
// Organizers scan at their own doors.
func CanScan(r *http.Request) bool {
	return HasAnyRole(r, models.RoleScanner, models.RoleOrganizer)
}

// OwnerIDs returns every identifier an event's organizer_id may hold for the
// current user: the user id hex and the external identity id.
func OwnerIDs(r *http.Request) []string {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return nil
	}
	ids := make([]string, 0, 2)
	if user.ID != "" {
		ids = append(ids, user.ID)
	}
	if user.ExternalID != "" {
		ids = append(ids, user.ExternalID)
	}
	return ids
}

// Owns reports whether the current user organizes ev.
func Owns(r *http.Request, ev models.Event) bool {
	return ev.OwnedBy(OwnerIDs(r)...)
}
