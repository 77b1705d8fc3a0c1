// internal/domain/models/ticket.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket grants one user entry to one event.
//
// Invariants:
//   - at most one ticket per (UserID, EventID), backed by a unique index
//   - QRCode is globally unique
//   - CheckedIn moves false -> true exactly once; CheckedInAt is set in the
//     same write and never otherwise
type Ticket struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	EventID     primitive.ObjectID `bson:"event_id" json:"eventId"`
	QRCode      string             `bson:"qr_code" json:"qrCode"`
	CheckedIn   bool               `bson:"checked_in" json:"checkedIn"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	CheckedInAt *time.Time         `bson:"checked_in_at,omitempty" json:"checkedInAt,omitempty"`
}
