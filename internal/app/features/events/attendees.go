package events

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type attendee struct {
	models.Ticket
	Name  string `json:"name"`
	Email string `json:"email"`
}

type attendeesResponse struct {
	Event     models.Event    `json:"event"`
	Stats     ticketing.Stats `json:"stats"`
	Percent   int             `json:"checkedInPercent"`
	Attendees []attendee      `json:"attendees"`
}

// ServeAttendees handles GET /events/{id}/attendees for the event's owner.
func (h *Handler) ServeAttendees(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		uierrors.Write(w, http.StatusBadRequest, "bad event id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.Write(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		uierrors.Internal(w, h.Log, "get event failed", err, zap.String("event_id", id.Hex()))
		return
	}
	if !authz.Owns(r, *ev) {
		uierrors.Write(w, http.StatusForbidden, "only the organizer can view attendees")
		return
	}

	tickets, err := h.Tickets.ListByEvent(ctx, id)
	if err != nil {
		uierrors.Internal(w, h.Log, "list tickets failed", err, zap.String("event_id", id.Hex()))
		return
	}

	userIDs := make([]primitive.ObjectID, len(tickets))
	for i, t := range tickets {
		userIDs[i] = t.UserID
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		uierrors.Internal(w, h.Log, "load attendees failed", err, zap.String("event_id", id.Hex()))
		return
	}

	resp := attendeesResponse{
		Event:     *ev,
		Stats:     ticketing.ComputeStats(tickets),
		Attendees: make([]attendee, len(tickets)),
	}
	resp.Percent = resp.Stats.Percent()
	for i, t := range tickets {
		u := users[t.UserID]
		resp.Attendees[i] = attendee{Ticket: t, Name: u.Name, Email: u.Email}
	}
	uierrors.JSON(w, http.StatusOK, resp)
}
