package auditlog

import (
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit views (typically at "/audit").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/logins", h.ServeMyLogins)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleOrganizer))
		pr.Get("/events/{id}", h.ServeEventTrail)
	})

	return r
}
