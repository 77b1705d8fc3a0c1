package authidp

import "github.com/go-chi/chi/v5"

// Routes returns the router for identity-provider endpoints.
// These routes are public (no authentication required).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// GET /auth/login - redirect to the provider
	r.Get("/login", h.ServeLogin)

	// GET /auth/callback - provider redirects back here
	r.Get("/callback", h.ServeCallback)

	return r
}
