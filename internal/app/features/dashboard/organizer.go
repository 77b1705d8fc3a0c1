package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type eventStats struct {
	Event   models.Event    `json:"event"`
	Stats   ticketing.Stats `json:"stats"`
	Percent int             `json:"checkedInPercent"`
}

type organizerData struct {
	Events  []eventStats    `json:"events"`
	Totals  ticketing.Stats `json:"totals"`
	Percent int             `json:"checkedInPercent"`
}

// organizerView loads the events owned by any of ownerIDs with their stats.
func (h *Handler) organizerView(ctx context.Context, ownerIDs []string) (organizerData, error) {
	evs, err := h.Events.ListByOrganizer(ctx, ownerIDs...)
	if err != nil {
		return organizerData{}, err
	}
	ids := make([]primitive.ObjectID, len(evs))
	for i, e := range evs {
		ids[i] = e.ID
	}
	stats, err := h.Tickets.StatsByEvent(ctx, ids)
	if err != nil {
		return organizerData{}, err
	}

	data := organizerData{Events: make([]eventStats, len(evs))}
	all := make([]ticketing.Stats, len(evs))
	for i, e := range evs {
		s := stats[e.ID]
		all[i] = s
		data.Events[i] = eventStats{Event: e, Stats: s, Percent: s.Percent()}
	}
	data.Totals = ticketing.Sum(all...)
	data.Percent = data.Totals.Percent()
	return data, nil
}

// ServeOrganizer handles GET /dashboard/organizer.
//
// Events are matched on the user id and the external identity id, so
// events recorded under either identifier appear.
func (h *Handler) ServeOrganizer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	owners := authz.OwnerIDs(r)
	data, err := h.organizerView(ctx, owners)
	if err != nil {
		uierrors.Internal(w, h.Log, "organizer dashboard failed", err, zap.Strings("owner_ids", owners))
		return
	}
	uierrors.JSON(w, http.StatusOK, data)
}
