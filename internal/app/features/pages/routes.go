// internal/app/features/pages/routes.go
package pages

import (
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts legal pages (typically at "/api/legal"). Reading is public;
// editing and seeding need a SuperAdmin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{type}", h.ServePage)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Put("/{type}", h.HandleEdit)
		pr.Post("/seed", h.HandleSeed)
	})
	return r
}
