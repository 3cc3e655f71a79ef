// internal/app/features/accesscodes/handler.go
package accesscodes

import (
	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Codes *accesscodestore.Store
	Units *unitstore.Cache
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(codes *accesscodestore.Store, units *unitstore.Cache, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Codes: codes, Units: units, Audit: audit, Log: logger}
}

// Routes mounts the access-code endpoints (typically at "/api/access-codes").
// Validation is public so the registration screen can check a code first.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/validate", h.HandleValidate)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleUnitLeader))
		pr.Post("/", h.HandleIssue)
	})
	return r
}
