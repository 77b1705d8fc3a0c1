package tickets

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/qrcode"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TicketWithEvent pairs a ticket with its event. Event is nil when the event
// has been removed.
type TicketWithEvent struct {
	Ticket models.Ticket `json:"ticket"`
	Event  *models.Event `json:"event"`
}

// JoinEvents loads the events for tickets, preserving ticket order.
func JoinEvents(ctx context.Context, events EventReader, tickets []models.Ticket) ([]TicketWithEvent, error) {
	ids := make([]primitive.ObjectID, len(tickets))
	for i, t := range tickets {
		ids[i] = t.EventID
	}
	byID, err := events.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]TicketWithEvent, len(tickets))
	for i, t := range tickets {
		out[i].Ticket = t
		if ev, ok := byID[t.EventID]; ok {
			out[i].Event = &ev
		}
	}
	return out, nil
}

// ServeMine handles GET /tickets/mine, newest first.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	_, userID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tickets, err := h.Tickets.ListByUser(ctx, userID)
	if err != nil {
		uierrors.Internal(w, h.Log, "list tickets failed", err, zap.String("user_id", userID.Hex()))
		return
	}
	rows, err := JoinEvents(ctx, h.Events, tickets)
	if err != nil {
		uierrors.Internal(w, h.Log, "load ticket events failed", err, zap.String("user_id", userID.Hex()))
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"tickets": rows})
}

// ServeQR handles GET /tickets/{id}/qr.png?size=.
// The holder may fetch it, and so may the event's organizer.
func (h *Handler) ServeQR(w http.ResponseWriter, r *http.Request) {
	_, userID, _ := authz.UserCtx(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.Write(w, http.StatusBadRequest, "bad ticket id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.Write(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		uierrors.Internal(w, h.Log, "get ticket failed", err, zap.String("ticket_id", id.Hex()))
		return
	}

	if t.UserID != userID {
		ev, err := h.Events.GetByID(ctx, t.EventID)
		if err != nil || !authz.Owns(r, *ev) {
			// Do not reveal that the ticket exists.
			uierrors.Write(w, http.StatusNotFound, "ticket not found")
			return
		}
	}

	size, _ := strconv.Atoi(query.Get(r, "size"))
	png, err := qrcode.PNG(t.QRCode, size)
	if err != nil {
		uierrors.Internal(w, h.Log, "render qr failed", err, zap.String("ticket_id", id.Hex()))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(png)
}
