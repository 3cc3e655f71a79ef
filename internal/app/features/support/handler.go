// internal/app/features/support/handler.go
package support

import (
	supportstore "github.com/dalemusser/churchhub/internal/app/store/support"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves support tickets. Anyone may open a ticket; signed-in
// callers have it linked to their account.
type Handler struct {
	Tickets *supportstore.Store
	Files   storage.Store // screenshots; nil drops inline images
	Limiter *ratelimit.Limiter
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, files storage.Store, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{Tickets: supportstore.New(db), Files: files, Limiter: limiter, Log: logger}
}

// Routes mounts tickets (typically at "/api/support").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/tickets", h.HandleCreate)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Get("/admin/tickets", h.ServeAdminList)
		pr.Put("/admin/tickets/{id}", h.HandleSetStatus)
	})
	return r
}
