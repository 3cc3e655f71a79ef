// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log (typically at "/api/audit").
//
// A multi-church SuperAdmin sees every event; a church-confined one sees
// events recorded against their churches.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Get("/", h.ServeList)
	})
	return r
}
