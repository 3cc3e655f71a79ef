// internal/app/features/announcements/routes.go
package announcements

import (
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts announcements (typically at "/api/announcements"). Anyone
// signed in reads; SuperAdmins publish and manage.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/pin", h.HandlePin)
	})
	return r
}
