// internal/app/features/testimonies/handler.go
package testimonies

import (
	testimonystore "github.com/dalemusser/churchhub/internal/app/store/testimonies"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Testimonies *testimonystore.Store
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Testimonies: testimonystore.New(db), Log: logger}
}

// Routes mounts the testimony endpoints (typically at "/api/testimonies").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Post("/{id}/approve", h.HandleApprove)
	})
	return r
}
