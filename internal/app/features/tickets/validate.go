package tickets

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/authz"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"go.uber.org/zap"
)

type validateRequest struct {
	QRCode string `json:"qrCode"`
}

// ServeValidate handles POST /tickets/validate.
//
// Every outcome, including store failures, is a 200 with valid=false and a
// message for the door staff. The attempt is added to the scanner's history.
func (h *Handler) ServeValidate(w http.ResponseWriter, r *http.Request) {
	_, scannerID, _ := authz.UserCtx(r)

	var req validateRequest
	if err := uierrors.DecodeJSON(r, &req); err != nil {
		uierrors.JSON(w, http.StatusOK, ticketing.Result{Valid: false, Message: ticketing.MsgInvalidFormat})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Service.ValidateAndCheckIn(ctx, req.QRCode)

	if h.Scans != nil {
		if _, err := h.Scans.Record(ctx, scannerID, res); err != nil {
			h.Log.Warn("failed to record scan",
				zap.String("scanner_id", scannerID.Hex()),
				zap.Error(err))
		}
	}

	uierrors.JSON(w, http.StatusOK, res)
}
