// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /admin. Every route requires an Authenticated
// session; group scope and admin rights are checked per handler.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAuthenticated)

	r.Get("/", h.ServeAdmin)
	r.Get("/audit", h.ServeActivity)
	r.Post("/group", h.HandleCreateGroup)
	r.Post("/members", h.HandleAddMember)
	r.Delete("/members/{uid}", h.HandleRemoveMember)
	r.Post("/repair", h.HandleRepair)
	return r
}
