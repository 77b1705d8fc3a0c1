package logout

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /logout.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/logout", h.ServeLogout)
}
