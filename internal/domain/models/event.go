// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a catalog entry owned by an organizer.
//
// OrganizerID normally holds the owner's User.ID hex. Events created through
// older clients may carry the owner's external identity id instead, so owner
// lookups match either value.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"` // lowercase, diacritics-stripped
	Description string             `bson:"description" json:"description"`
	Location    string             `bson:"location" json:"location"`
	Date        time.Time          `bson:"date" json:"date"`
	OrganizerID string             `bson:"organizer_id" json:"organizerId"`

	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// OwnedBy reports whether the event belongs to any of the given owner ids.
func (e Event) OwnedBy(ids ...string) bool {
	for _, id := range ids {
		if id != "" && e.OrganizerID == id {
			return true
		}
	}
	return false
}
