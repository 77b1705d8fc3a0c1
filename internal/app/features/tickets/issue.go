package tickets

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type issueRequest struct {
	UserID  string `json:"userId"`
	EventID string `json:"eventId"`
}

// ServeIssue handles POST /tickets.
//
// userId defaults to the signed-in user; naming anyone else is forbidden.
// Repeating the request returns the same ticket with created=false.
func (h *Handler) ServeIssue(w http.ResponseWriter, r *http.Request) {
	_, self, _ := authz.UserCtx(r)

	var req issueRequest
	if err := uierrors.DecodeJSON(r, &req); err != nil {
		uierrors.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	eventID, err := primitive.ObjectIDFromHex(req.EventID)
	if err != nil {
		uierrors.Write(w, http.StatusBadRequest, "bad event id")
		return
	}
	userID := self
	if req.UserID != "" {
		userID, err = primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			uierrors.Write(w, http.StatusBadRequest, "bad user id")
			return
		}
		if userID != self {
			uierrors.Write(w, http.StatusForbidden, "tickets can only be issued to yourself")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	issued, err := h.Service.IssueTicket(ctx, userID, eventID)
	if errors.Is(err, ticketing.ErrEventNotFound) {
		uierrors.Write(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		uierrors.Internal(w, h.Log, "issue ticket failed", err,
			zap.String("user_id", userID.Hex()),
			zap.String("event_id", eventID.Hex()))
		return
	}

	status := http.StatusOK
	if issued.Created {
		status = http.StatusCreated
	}
	uierrors.JSON(w, status, issued)
}
