// internal/domain/models/scan.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScanRecord is one validation attempt made by a scanner. The scanner
// dashboard shows the most recent records.
type ScanRecord struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ScannerID  primitive.ObjectID  `bson:"scanner_id" json:"scannerId"`
	Valid      bool                `bson:"valid" json:"valid"`
	Message    string              `bson:"message" json:"message"`
	TicketID   *primitive.ObjectID `bson:"ticket_id,omitempty" json:"ticketId,omitempty"`
	EventID    *primitive.ObjectID `bson:"event_id,omitempty" json:"eventId,omitempty"`
	EventTitle string              `bson:"event_title,omitempty" json:"eventTitle,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"timestamp"`
}
