package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func withRole(role string) (*auth.SessionUser, primitive.ObjectID) {
	id := primitive.NewObjectID()
	return &auth.SessionUser{ID: id.Hex(), ExternalID: "sub-" + id.Hex(), Role: role}, id
}

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	role, id, ok := authz.UserCtx(req)
	if ok || role != "" || id != primitive.NilObjectID {
		t.Errorf("UserCtx() = %q, %v, %v; want empty", role, id, ok)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil),
		&auth.SessionUser{ID: "not-an-oid", Role: "organizer"})
	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("malformed id should fail closed")
	}
	if authz.IsOrganizer(req) {
		t.Error("malformed id should not grant organizer")
	}
}

func TestUserCtx_LowercasesRole(t *testing.T) {
	u, want := withRole("Organizer")
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), u)
	role, id, ok := authz.UserCtx(req)
	if !ok || role != "organizer" || id != want {
		t.Errorf("UserCtx() = %q, %v, %v", role, id, ok)
	}
}

func TestRoleChecks(t *testing.T) {
	tests := []struct {
		role      string
		organizer bool
		scan      bool
	}{
		{models.RoleAttendee, false, false},
		{models.RoleScanner, false, true},
		{models.RoleOrganizer, true, true},
		{"SCANNER", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			u, _ := withRole(tt.role)
			req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), u)
			if got := authz.IsOrganizer(req); got != tt.organizer {
				t.Errorf("IsOrganizer = %v, want %v", got, tt.organizer)
			}
			if got := authz.CanScan(req); got != tt.scan {
				t.Errorf("CanScan = %v, want %v", got, tt.scan)
			}
		})
	}
}

func TestHasAnyRole_TrimsWanted(t *testing.T) {
	u, _ := withRole("scanner")
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), u)
	if !authz.HasAnyRole(req, "attendee", " Scanner ") {
		t.Error("expected match")
	}
}

func TestOwns_EitherIdentifier(t *testing.T) {
	u, id := withRole("organizer")
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), u)

	if ids := authz.OwnerIDs(req); len(ids) != 2 {
		t.Fatalf("OwnerIDs = %v", ids)
	}
	if !authz.Owns(req, models.Event{OrganizerID: id.Hex()}) {
		t.Error("should own by user id")
	}
	if !authz.Owns(req, models.Event{OrganizerID: u.ExternalID}) {
		t.Error("should own by external id")
	}
	if authz.Owns(req, models.Event{OrganizerID: primitive.NewObjectID().Hex()}) {
		t.Error("should not own another organizer's event")
	}
	if authz.Owns(httptest.NewRequest("GET", "/", nil), models.Event{}) {
		t.Error("anonymous request owns nothing")
	}
}
