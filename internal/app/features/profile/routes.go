// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /me.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMe)

	r.With(sm.RequireSignedIn).Post("/profile", h.HandleSetup)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAuthenticated)
		pr.Patch("/profile", h.HandleUpdate)
		pr.Get("/logins", h.ServeLogins)
	})
	return r
}
