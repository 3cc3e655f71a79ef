// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the user endpoints (typically at "/api/users").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Registration screens check numbers before an account exists.
	r.Get("/check-phone", h.HandleCheckPhone)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/me", h.ServeMe)
		pr.Put("/me", h.HandleUpdateMe)
		pr.Post("/me/password", h.HandleChangePassword)

		pr.Get("/", h.ServeList)
		pr.Get("/pending", h.ServePending)
		pr.Post("/approve", h.HandleApprove)
		pr.Post("/reject", h.HandleReject)
		pr.Get("/{id}", h.ServeUser)

		pr.Group(func(ar chi.Router) {
			ar.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleMinistryAdmin, models.RoleUnitLeader))
			ar.Get("/lookup-email", h.ServeLookupEmail)
			ar.Post("/{id}/roles", h.HandleAddRole)
			ar.Delete("/{id}/roles/{membershipId}", h.HandleRemoveRole)
		})
	})
	return r
}
