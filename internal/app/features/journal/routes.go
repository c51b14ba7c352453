// internal/app/features/journal/routes.go
package journal

import (
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /journal.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAuthenticated)

	r.Get("/events", h.ServeEvents)
	r.Post("/events", h.HandleLogEvent)
	r.Post("/reminders", h.HandleReminder)
	r.Post("/reminders/group", h.HandleGroupReminder)
	return r
}
