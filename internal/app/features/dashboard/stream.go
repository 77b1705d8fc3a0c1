package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// StatsMessage is the data of one "stats" stream event.
type StatsMessage struct {
	EventID primitive.ObjectID `json:"eventId"`
	Stats   ticketing.Stats    `json:"stats"`
	Percent int                `json:"checkedInPercent"`
}

// ServeOrganizerStream handles GET /dashboard/organizer/stream.
//
// It is a server-sent event stream. Each ticket issued or checked in for
// one of the organizer's events, and each edit, produces a "stats" event
// carrying that event's fresh counts. Idle streams get a comment line every
// Heartbeat so proxies keep them open.
func (h *Handler) ServeOrganizerStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		uierrors.Write(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	owners := authz.OwnerIDs(r)
	changes := h.Changes.Subscribe(ctx)

	// owned caches ownership answers; events created after the stream opened
	// are looked up on first sight.
	owned := map[primitive.ObjectID]bool{}
	initCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	evs, err := h.Events.ListByOrganizer(initCtx, owners...)
	cancel()
	if err != nil {
		uierrors.Internal(w, h.Log, "organizer stream: list events", err)
		return
	}
	for _, e := range evs {
		owned[e.ID] = true
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	if h.Gauge != nil {
		h.Gauge.StreamOpened()
		defer h.Gauge.StreamClosed()
	}

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case id, open := <-changes:
			if !open {
				return
			}
			mine, err := h.owns(ctx, owned, owners, id)
			if err != nil {
				h.Log.Warn("organizer stream: ownership lookup failed", zap.String("event_id", id.Hex()), zap.Error(err))
				continue
			}
			if !mine {
				continue
			}
			if err := h.sendStats(ctx, w, id); err != nil {
				h.Log.Warn("organizer stream: send failed", zap.String("event_id", id.Hex()), zap.Error(err))
				continue
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) owns(ctx context.Context, owned map[primitive.ObjectID]bool, owners []string, id primitive.ObjectID) (bool, error) {
	if mine, seen := owned[id]; seen {
		return mine, nil
	}
	lctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	ev, err := h.Events.GetByID(lctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		owned[id] = false
		return false, nil
	}
	if err != nil {
		return false, err
	}
	owned[id] = ev.OwnedBy(owners...)
	return owned[id], nil
}

func (h *Handler) sendStats(ctx context.Context, w http.ResponseWriter, id primitive.ObjectID) error {
	sctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	stats, err := h.Tickets.StatsByEvent(sctx, []primitive.ObjectID{id})
	if err != nil {
		return err
	}
	s := stats[id]
	b, err := json.Marshal(StatsMessage{EventID: id, Stats: s, Percent: s.Percent()})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: stats\ndata: %s\n\n", b)
	return err
}
