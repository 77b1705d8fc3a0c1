// Package tickets serves ticket issuance, door validation, the holder's
// ticket list, and QR images.
package tickets

import (
	"context"
	"net/http"

	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TicketReader reads tickets for display.
type TicketReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Ticket, error)
}

// EventReader resolves the events tickets belong to.
type EventReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Event, error)
}

// ScanRecorder keeps each scanner's validation history.
type ScanRecorder interface {
	Record(ctx context.Context, scannerID primitive.ObjectID, res ticketing.Result) (models.ScanRecord, error)
}

type Handler struct {
	Service *ticketing.Service
	Tickets TicketReader
	Events  EventReader
	Scans   ScanRecorder
	Log     *zap.Logger

	// Throttle, when set, wraps POST /validate after the role check.
	Throttle func(http.Handler) http.Handler
}

func NewHandler(svc *ticketing.Service, tickets TicketReader, events EventReader, scans ScanRecorder, logger *zap.Logger) *Handler {
	return &Handler{
		Service: svc,
		Tickets: tickets,
		Events:  events,
		Scans:   scans,
		Log:     logger,
	}
}
