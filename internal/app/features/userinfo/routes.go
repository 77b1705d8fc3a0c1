package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /me on the supplied router.
// No auth middleware is required because the handler checks the session
// itself via auth.CurrentUser.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/me", h.ServeMe)
}
