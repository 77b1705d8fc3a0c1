package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UpcomingLimit is how many unregistered upcoming events are suggested.
const UpcomingLimit = 3

type attendeeTicket struct {
	Ticket models.Ticket `json:"ticket"`
	Event  *models.Event `json:"event"`
}

type attendeeData struct {
	Tickets  []attendeeTicket `json:"tickets"`
	Upcoming []models.Event   `json:"upcoming"`
}

// ServeAttendee handles GET /dashboard/attendee: the user's tickets with
// their events, plus a few upcoming events they have not registered for.
func (h *Handler) ServeAttendee(w http.ResponseWriter, r *http.Request) {
	_, userID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tickets, err := h.Tickets.ListByUser(ctx, userID)
	if err != nil {
		uierrors.Internal(w, h.Log, "attendee dashboard: list tickets", err, zap.String("user_id", userID.Hex()))
		return
	}
	registered := make([]primitive.ObjectID, len(tickets))
	for i, t := range tickets {
		registered[i] = t.EventID
	}

	var (
		byID     map[primitive.ObjectID]models.Event
		upcoming []models.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byID, err = h.Events.GetByIDs(gctx, registered)
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = h.Events.ListUpcoming(gctx, h.now(), registered, UpcomingLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		uierrors.Internal(w, h.Log, "attendee dashboard: load events", err, zap.String("user_id", userID.Hex()))
		return
	}

	data := attendeeData{
		Tickets:  make([]attendeeTicket, len(tickets)),
		Upcoming: upcoming,
	}
	if data.Upcoming == nil {
		data.Upcoming = []models.Event{}
	}
	for i, t := range tickets {
		data.Tickets[i].Ticket = t
		if ev, ok := byID[t.EventID]; ok {
			data.Tickets[i].Event = &ev
		}
	}
	uierrors.JSON(w, http.StatusOK, data)
}
