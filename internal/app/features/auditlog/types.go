package auditlog

import (
	"time"

	"github.com/dalemusser/eventkey/internal/app/store/audit"
)

// listItem is a single audit row as returned to clients.
type listItem struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"eventType"`
	ActorID   string            `json:"actorId,omitempty"`
	ActorName string            `json:"actorName,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"failureReason,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	EventID    string     `json:"eventId"`
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	Total      int64      `json:"total"`
	HasPrev    bool       `json:"hasPrev"`
	HasNext    bool       `json:"hasNext"`
}

// catalogEventTypes are the types an organizer may filter an event's
// trail by.
var catalogEventTypes = map[string]bool{
	audit.EventEventCreated: true,
	audit.EventEventUpdated: true,
	audit.EventEditDenied:   true,
}
