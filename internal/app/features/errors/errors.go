// Package errors writes the JSON responses shared by every feature:
// success bodies, {"error": msg} failures, and the /forbidden and
// /unauthorized landing endpoints that browser redirects point at.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies accepted by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrBadJSON is returned by DecodeJSON for unreadable bodies.
var ErrBadJSON = errors.New("invalid JSON body")

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write sends {"error": msg} with the given status.
func Write(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Internal logs err and sends a generic 500. The client never sees err.
func Internal(w http.ResponseWriter, log *zap.Logger, msg string, err error, fields ...zap.Field) {
	log.Error(msg, append(fields, zap.Error(err))...)
	Write(w, http.StatusInternalServerError, "internal error")
}

// DecodeJSON reads a single JSON object from r into dst. Unknown fields are
// rejected so client typos surface as 400s.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return nil
}

// Handler serves the error landing endpoints.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden handles GET /forbidden.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	Write(w, http.StatusForbidden, "You don't have permission to view this page.")
}

// Unauthorized handles GET /unauthorized.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/me", http.StatusSeeOther)
		return
	}
	Write(w, http.StatusUnauthorized, "Please sign in to continue.")
}
