// Package dashboard serves the per-role dashboards and the organizer's
// live stats stream.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventStore is the subset of the catalog the dashboards read.
type EventStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Event, error)
	ListByOrganizer(ctx context.Context, ids ...string) ([]models.Event, error)
	ListUpcoming(ctx context.Context, from time.Time, exclude []primitive.ObjectID, limit int) ([]models.Event, error)
}

// TicketStore is the subset of the ledger the dashboards read.
type TicketStore interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Ticket, error)
	StatsByEvent(ctx context.Context, eventIDs []primitive.ObjectID) (map[primitive.ObjectID]ticketing.Stats, error)
}

// ScanHistory lists a scanner's recent validations.
type ScanHistory interface {
	Recent(ctx context.Context, scannerID primitive.ObjectID, limit int) ([]models.ScanRecord, error)
}

// ChangeFeed delivers ids of events whose attendance changed.
type ChangeFeed interface {
	Subscribe(ctx context.Context) <-chan primitive.ObjectID
}

// StreamGauge counts open dashboard streams.
type StreamGauge interface {
	StreamOpened()
	StreamClosed()
}

type Handler struct {
	Events  EventStore
	Tickets TicketStore
	Scans   ScanHistory
	Changes ChangeFeed
	Gauge   StreamGauge // optional
	Log     *zap.Logger

	// Heartbeat is the idle interval between stream keep-alive comments.
	Heartbeat time.Duration
	// Now is the clock for "upcoming"; nil means time.Now.
	Now func() time.Time
}

func NewHandler(events EventStore, tickets TicketStore, scans ScanHistory, changes ChangeFeed, gauge StreamGauge, logger *zap.Logger) *Handler {
	return &Handler{
		Events:    events,
		Tickets:   tickets,
		Scans:     scans,
		Changes:   changes,
		Gauge:     gauge,
		Log:       logger,
		Heartbeat: 25 * time.Second,
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ServeDashboard sends the user to the dashboard for their role.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := authz.UserCtx(r); !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch {
	case authz.IsOrganizer(r):
		http.Redirect(w, r, "/dashboard/organizer", http.StatusSeeOther)
	case authz.CanScan(r):
		http.Redirect(w, r, "/dashboard/scanner", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/dashboard/attendee", http.StatusSeeOther)
	}
}
