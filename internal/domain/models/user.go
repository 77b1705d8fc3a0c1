// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold. Roles are stored lowercase.
const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
	RoleScanner   = "scanner"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAttendee, RoleOrganizer, RoleScanner:
		return true
	}
	return false
}

// User is the application record for an identity-provider subject.
//
// NOTE:
//   - ExternalID is the subject ("sub") issued by the identity provider and is
//     unique across users. Records are created lazily on first login.
//   - Role is the only mutable field after creation.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalID string             `bson:"external_id" json:"externalIdentityId"`
	Email      string             `bson:"email" json:"email"`
	Name       string             `bson:"name" json:"name"`
	Role       string             `bson:"role" json:"role"` // attendee | organizer | scanner

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
