package events

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/store/events"
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// inputError maps validation failures to a 400 message.
func inputError(err error) (string, bool) {
	switch {
	case errors.Is(err, uierrors.ErrBadJSON):
		return "invalid JSON body", true
	case errors.Is(err, eventstore.ErrTitleRequired):
		return "title is required", true
	case errors.Is(err, eventstore.ErrDateRequired):
		return "date is required", true
	}
	return "", false
}

// ServeCreate handles POST /events. The signed-in organizer owns the event.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in eventstore.Input
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, err := h.Events.Create(ctx, u.ID, in)
	if msg, bad := inputError(err); bad {
		uierrors.Write(w, http.StatusBadRequest, msg)
		return
	}
	if err != nil {
		uierrors.Internal(w, h.Log, "create event failed", err, zap.String("organizer_id", u.ID))
		return
	}

	h.AuditLog.EventCreated(ctx, r, u.ID, ev.ID, ev.Title)
	uierrors.JSON(w, http.StatusCreated, ev)
}

// ServeUpdate handles PUT /events/{id}. Only the owner may edit.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, ok := eventID(r)
	if !ok {
		uierrors.Write(w, http.StatusBadRequest, "bad event id")
		return
	}

	var in eventstore.Input
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, err := h.Events.Update(ctx, id, in, authz.OwnerIDs(r)...)
	if msg, bad := inputError(err); bad {
		uierrors.Write(w, http.StatusBadRequest, msg)
		return
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.Write(w, http.StatusNotFound, "event not found")
		return
	case errors.Is(err, eventstore.ErrForbidden):
		h.AuditLog.EditDenied(ctx, r, u.ID, id)
		uierrors.Write(w, http.StatusForbidden, "only the organizer can edit this event")
		return
	case err != nil:
		uierrors.Internal(w, h.Log, "update event failed", err, zap.String("event_id", id.Hex()))
		return
	}

	h.AuditLog.EventUpdated(ctx, r, u.ID, ev.ID, ev.Title)
	if h.Notify != nil {
		h.Notify.EventChanged(ctx, ev.ID)
	}
	uierrors.JSON(w, http.StatusOK, ev)
}
