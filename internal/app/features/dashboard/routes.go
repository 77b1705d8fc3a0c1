package dashboard

import (
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard feature under whatever mount point the
// top-level router chooses (e.g., "/dashboard").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// All dashboards require the user to be signed in.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
		pr.Get("/attendee", h.ServeAttendee)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleOrganizer))
		pr.Get("/organizer", h.ServeOrganizer)
		pr.Get("/organizer/stream", h.ServeOrganizerStream)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleScanner, models.RoleOrganizer))
		pr.Get("/scanner", h.ServeScanner)
	})

	return r
}
