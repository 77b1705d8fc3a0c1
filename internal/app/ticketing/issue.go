package ticketing

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/eventkey/internal/app/system/qrcode"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Issued is the outcome of IssueTicket.
type Issued struct {
	Ticket  models.Ticket `json:"ticket"`
	Created bool          `json:"created"`
}

// IssueTicket returns the user's ticket for the event, creating it if the
// user has none. Calling it again for the same pair returns the same ticket.
//
// Two concurrent calls for one pair cannot both insert: the ledger's unique
// (user_id, event_id) key rejects the loser, which then returns the winner's
// ticket with Created=false.
func (s *Service) IssueTicket(ctx context.Context, userID, eventID primitive.ObjectID) (Issued, error) {
	if _, err := s.Catalog.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Issued{}, ErrEventNotFound
		}
		return Issued{}, fmt.Errorf("load event: %w", err)
	}

	existing, err := s.Ledger.FindByUserEvent(ctx, userID, eventID)
	if err == nil {
		s.issued(false)
		return Issued{Ticket: *existing, Created: false}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Issued{}, fmt.Errorf("lookup ticket: %w", err)
	}

	code, err := qrcode.Encode(eventID.Hex(), userID.Hex())
	if err != nil {
		return Issued{}, fmt.Errorf("encode qr code: %w", err)
	}

	t, err := s.Ledger.Insert(ctx, models.Ticket{
		UserID:    userID,
		EventID:   eventID,
		QRCode:    code,
		CheckedIn: false,
		CreatedAt: s.now(),
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateTicket) {
			return Issued{}, fmt.Errorf("insert ticket: %w", err)
		}
		winner, lerr := s.Ledger.FindByUserEvent(ctx, userID, eventID)
		if lerr != nil {
			return Issued{}, fmt.Errorf("reload ticket after conflict: %w", lerr)
		}
		s.Log.Info("ticket issuance lost race; returning existing ticket",
			zap.String("user_id", userID.Hex()),
			zap.String("event_id", eventID.Hex()),
			zap.String("ticket_id", winner.ID.Hex()))
		s.issued(false)
		return Issued{Ticket: *winner, Created: false}, nil
	}

	s.Log.Info("ticket issued",
		zap.String("user_id", userID.Hex()),
		zap.String("event_id", eventID.Hex()),
		zap.String("ticket_id", t.ID.Hex()))
	s.issued(true)
	s.notify(ctx, eventID)
	return Issued{Ticket: t, Created: true}, nil
}

func (s *Service) issued(created bool) {
	if s.Metrics != nil {
		s.Metrics.TicketIssued(created)
	}
}
