package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	scanstore "github.com/dalemusser/eventkey/internal/app/store/scans"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.uber.org/zap"
)

// ServeScanner handles GET /dashboard/scanner: the scanner's latest
// validations, newest first.
func (h *Handler) ServeScanner(w http.ResponseWriter, r *http.Request) {
	_, scannerID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recent, err := h.Scans.Recent(ctx, scannerID, scanstore.HistorySize)
	if err != nil {
		uierrors.Internal(w, h.Log, "scanner dashboard failed", err, zap.String("scanner_id", scannerID.Hex()))
		return
	}
	if recent == nil {
		recent = []models.ScanRecord{}
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"scans": recent})
}
