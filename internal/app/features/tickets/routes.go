package tickets

import (
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the tickets feature (mounted at "/tickets").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.ServeIssue)
		pr.Get("/mine", h.ServeMine)
		pr.Get("/{id}/qr.png", h.ServeQR)
	})

	// Organizers scan at their own doors.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleScanner, models.RoleOrganizer))
		if h.Throttle != nil {
			pr.Use(h.Throttle)
		}
		pr.Post("/validate", h.ServeValidate)
	})

	return r
}
