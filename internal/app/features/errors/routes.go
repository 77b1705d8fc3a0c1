package errors

import "github.com/go-chi/chi/v5"

// MountRoutes registers the error landing endpoints.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/forbidden", h.Forbidden)
	r.Get("/unauthorized", h.Unauthorized)
}
