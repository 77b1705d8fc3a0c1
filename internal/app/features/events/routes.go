package events

import (
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the catalog under whatever mount point the top-level router
// chooses (e.g., "/events"). Browsing is public; writes and the attendee
// list need an organizer.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleOrganizer))
		pr.Post("/", h.ServeCreate)
		pr.Put("/{id}", h.ServeUpdate)
		pr.Get("/{id}/attendees", h.ServeAttendees)
	})

	return r
}
