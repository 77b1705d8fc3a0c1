package auditlog

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.uber.org/zap"
)

const (
	defaultLogins = 20
	maxLogins     = 100
)

// ServeMyLogins handles GET /audit/logins: the caller's own recent
// sign-ins, newest first. ?limit= caps the count at 100.
func (h *Handler) ServeMyLogins(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := int64(defaultLogins)
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = int64(min(n, maxLogins))
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := h.Logins.Recent(ctx, userID, limit)
	if err != nil {
		uierrors.Internal(w, h.Log, "list logins failed", err, zap.String("user_id", userID.Hex()))
		return
	}
	if rows == nil {
		rows = []models.LoginRecord{}
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"logins": rows})
}
