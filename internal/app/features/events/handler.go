// Package events serves the event catalog: browsing, organizer create and
// edit, and the owner-only attendee list.
package events

import (
	"context"
	"net/http"

	"github.com/dalemusser/eventkey/internal/app/store/events"
	"github.com/dalemusser/eventkey/internal/app/system/auditlog"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventStore is the catalog. *eventstore.Store and *eventstore.Cached both
// satisfy it.
type EventStore interface {
	Create(ctx context.Context, organizerID string, in eventstore.Input) (models.Event, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	Update(ctx context.Context, id primitive.ObjectID, in eventstore.Input, ownerIDs ...string) (models.Event, error)
	ListPage(ctx context.Context, after string, limit int) (eventstore.Page, error)
}

// TicketLister lists an event's tickets.
type TicketLister interface {
	ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Ticket, error)
}

// UserLookup resolves ticket holders.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

type Handler struct {
	Events   EventStore
	Tickets  TicketLister
	Users    UserLookup
	AuditLog *auditlog.Logger
	Notify   ticketing.Notifier // optional
	Log      *zap.Logger
}

func NewHandler(events EventStore, tickets TicketLister, users UserLookup, audit *auditlog.Logger, notify ticketing.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Events:   events,
		Tickets:  tickets,
		Users:    users,
		AuditLog: audit,
		Notify:   notify,
		Log:      logger,
	}
}

// eventID parses the {id} route parameter.
func eventID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}
