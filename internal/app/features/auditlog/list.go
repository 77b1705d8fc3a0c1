package auditlog

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/store/audit"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeEventTrail handles GET /audit/events/{id}.
//
// Query parameters: event_type, start_date and end_date (YYYY-MM-DD, UTC),
// page (1-based). Only the event's organizer may read it.
func (h *Handler) ServeEventTrail(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.Write(w, http.StatusBadRequest, "bad event id")
		return
	}

	q := r.URL.Query()
	eventType := strings.TrimSpace(q.Get("event_type"))
	if eventType != "" && !catalogEventTypes[eventType] {
		uierrors.Write(w, http.StatusBadRequest, "unknown event_type")
		return
	}
	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		TargetEventID: &id,
		Category:      audit.CategoryCatalog,
		EventType:     eventType,
		Limit:         pageSize,
		Offset:        int64((page - 1) * pageSize),
	}
	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			uierrors.Write(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		filter.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			uierrors.Write(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		// End of day
		end := t.Add(24*time.Hour - time.Millisecond)
		filter.EndTime = &end
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
		uierrors.Write(w, http.StatusForbidden, "only the organizer can view this event's history")
		return
	}

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		uierrors.Internal(w, h.Log, "query audit events failed", err, zap.String("event_id", id.Hex()))
		return
	}
	total, err := h.Audit.Count(ctx, filter)
	if err != nil {
		uierrors.Internal(w, h.Log, "count audit events failed", err, zap.String("event_id", id.Hex()))
		return
	}

	// Batch fetch actor names
	actorIDs := make([]primitive.ObjectID, 0, len(events))
	seen := make(map[primitive.ObjectID]bool)
	for _, e := range events {
		if e.ActorID != nil && !seen[*e.ActorID] {
			seen[*e.ActorID] = true
			actorIDs = append(actorIDs, *e.ActorID)
		}
	}
	names := make(map[primitive.ObjectID]string)
	if len(actorIDs) > 0 {
		users, err := h.Users.GetByIDs(ctx, actorIDs)
		if err != nil {
			h.Log.Warn("failed to fetch actor names for audit trail", zap.Error(err))
		}
		for uid, u := range users {
			names[uid] = u.Name
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.Timestamp,
			EventType: e.EventType,
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = names[*e.ActorID]
		}
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	uierrors.JSON(w, http.StatusOK, listResponse{
		EventID:    id.Hex(),
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}
