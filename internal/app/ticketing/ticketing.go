// Package ticketing implements ticket issuance and the validate-and-check-in
// protocol. It depends only on the small store interfaces below, so callers
// pass every identity explicitly and tests can run it against in-memory
// stores.
package ticketing

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Store lookups report a missing record with mongo.ErrNoDocuments, the same
// way the Mongo-backed stores do.

// Ledger is the authoritative store of tickets.
type Ledger interface {
	// FindByUserEvent returns the ticket for the pair.
	FindByUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) (*models.Ticket, error)
	// Insert stores a new ticket. A unique-key conflict is reported with an
	// error wrapping ErrDuplicateTicket.
	Insert(ctx context.Context, t models.Ticket) (models.Ticket, error)
	// FindByQRCode returns the ticket whose code matches exactly.
	FindByQRCode(ctx context.Context, code string) (*models.Ticket, error)
	// MarkCheckedIn atomically sets checked_in=true and checked_in_at=at only
	// if the ticket is not checked in yet. It returns the ticket as stored
	// after the call and whether this call performed the transition.
	MarkCheckedIn(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Ticket, bool, error)
}

// Catalog is the authoritative store of events.
type Catalog interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
}

// Directory resolves ticket holders for display.
type Directory interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Recorder receives protocol outcomes for metrics.
type Recorder interface {
	TicketIssued(created bool)
	CheckIn(outcome Outcome, took time.Duration)
}

// Notifier is told when an event's attendance changed.
type Notifier interface {
	EventChanged(ctx context.Context, eventID primitive.ObjectID)
}

var (
	// ErrEventNotFound is returned by IssueTicket when the event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrDuplicateTicket marks a unique-key conflict on insert.
	ErrDuplicateTicket = errors.New("ticket already exists")
)

// Service runs the protocol. Ledger, Catalog and Users are required; the
// remaining fields are optional.
type Service struct {
	Ledger  Ledger
	Catalog Catalog
	Users   Directory
	Log     *zap.Logger

	Metrics Recorder
	Notify  Notifier
	Now     func() time.Time
}

// New constructs a Service.
func New(ledger Ledger, catalog Catalog, users Directory, logger *zap.Logger) *Service {
	return &Service{
		Ledger:  ledger,
		Catalog: catalog,
		Users:   users,
		Log:     logger,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// now truncates to milliseconds, the precision Mongo stores, so returned and
// stored timestamps compare equal.
func (s *Service) now() time.Time {
	t := time.Now().UTC()
	if s.Now != nil {
		t = s.Now()
	}
	return t.Truncate(time.Millisecond)
}

func (s *Service) notify(ctx context.Context, eventID primitive.ObjectID) {
	if s.Notify != nil {
		s.Notify.EventChanged(ctx, eventID)
	}
}
