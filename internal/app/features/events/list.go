package events

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/paging"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeList handles GET /events?after=&limit=.
// Events come in date order; pass the returned "next" as ?after= for the
// following page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Events.ListPage(ctx, query.Get(r, "after"), paging.ParseLimit(r))
	if err != nil {
		uierrors.Internal(w, h.Log, "list events failed", err)
		return
	}
	if page.Events == nil {
		page.Events = []models.Event{}
	}
	uierrors.JSON(w, http.StatusOK, page)
}

// ServeGet handles GET /events/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		uierrors.Write(w, http.StatusBadRequest, "bad event id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
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
	uierrors.JSON(w, http.StatusOK, ev)
}
