package ticketing

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eventkey/internal/app/system/qrcode"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result messages shown to scanners.
const (
	MsgCheckedIn     = "Check-in successful"
	MsgInvalidFormat = "Invalid QR code format"
	MsgNotFound      = "Ticket not found"
	MsgAlreadyUsed   = "Ticket already used"
	MsgEventNotFound = "Event not found"
	MsgRetry         = "Validation failed - please try again"
)

// Outcome classifies a validation attempt.
type Outcome string

const (
	OutcomeCheckedIn     Outcome = "checked_in"
	OutcomeInvalidFormat Outcome = "invalid_format"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeAlreadyUsed   Outcome = "already_used"
	OutcomeError         Outcome = "error"
)

// Result is the business outcome of a scan. Only a successful check-in has
// Valid=true; every other outcome is a rejection the scanner can act on.
type Result struct {
	Valid   bool           `json:"valid"`
	Message string         `json:"message"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
	Event   *models.Event  `json:"event,omitempty"`
	User    *models.User   `json:"user,omitempty"`

	Outcome Outcome `json:"-"`
}

func reject(outcome Outcome, msg string) Result {
	return Result{Valid: false, Message: msg, Outcome: outcome}
}

// ValidateAndCheckIn decides whether a scanned code admits its holder and, if
// so, checks the ticket in.
//
// Ticket states: unissued (no record) -> issued (checked_in=false) ->
// checked in (terminal). The code is only format-checked; the ticket is
// found by an exact match on the full code. The transition is one
// conditional write, so of two concurrent scans exactly one succeeds and the
// other sees "already used".
func (s *Service) ValidateAndCheckIn(ctx context.Context, code string) Result {
	start := time.Now()
	res := s.validate(ctx, code)
	if s.Metrics != nil {
		s.Metrics.CheckIn(res.Outcome, time.Since(start))
	}
	return res
}

func (s *Service) validate(ctx context.Context, code string) Result {
	if _, ok := qrcode.Decode(code); !ok {
		return reject(OutcomeInvalidFormat, MsgInvalidFormat)
	}

	t, err := s.Ledger.FindByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return reject(OutcomeNotFound, MsgNotFound)
		}
		return s.failed("lookup ticket by code", err)
	}

	ev, err := s.Catalog.GetByID(ctx, t.EventID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return s.failed("load event", err)
	}
	if err != nil {
		ev = nil
	}

	if t.CheckedIn {
		return s.alreadyUsed(t, ev)
	}
	if ev == nil {
		s.Log.Warn("ticket references missing event",
			zap.String("ticket_id", t.ID.Hex()),
			zap.String("event_id", t.EventID.Hex()))
		res := reject(OutcomeNotFound, MsgEventNotFound)
		res.Ticket = t
		return res
	}

	holder, err := s.Users.GetByID(ctx, t.UserID)
	if err != nil {
		// The holder is display-only; a missing record does not block entry.
		if !errors.Is(err, mongo.ErrNoDocuments) {
			s.Log.Warn("load ticket holder failed",
				zap.String("user_id", t.UserID.Hex()),
				zap.Error(err))
		}
		holder = nil
	}

	updated, applied, err := s.Ledger.MarkCheckedIn(ctx, t.ID, s.now())
	if err != nil {
		return s.failed("check in ticket", err)
	}
	if !applied {
		return s.alreadyUsed(updated, ev)
	}

	s.Log.Info("ticket checked in",
		zap.String("ticket_id", updated.ID.Hex()),
		zap.String("event_id", updated.EventID.Hex()),
		zap.String("user_id", updated.UserID.Hex()))
	s.notify(ctx, updated.EventID)

	return Result{
		Valid:   true,
		Message: MsgCheckedIn,
		Ticket:  updated,
		Event:   ev,
		User:    holder,
		Outcome: OutcomeCheckedIn,
	}
}

func (s *Service) alreadyUsed(t *models.Ticket, ev *models.Event) Result {
	res := reject(OutcomeAlreadyUsed, MsgAlreadyUsed)
	res.Ticket = t
	res.Event = ev
	return res
}

func (s *Service) failed(op string, err error) Result {
	s.Log.Error("ticket validation failed", zap.String("op", op), zap.Error(err))
	return reject(OutcomeError, MsgRetry)
}
