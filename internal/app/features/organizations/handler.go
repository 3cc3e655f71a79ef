// internal/app/features/organizations/handler.go
package organizations

import (
	organizationstore "github.com/dalemusser/churchhub/internal/app/store/organizations"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs *organizationstore.Store
	Log  *zap.Logger
}

// NewHandler constructs a new Organizations handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs: organizationstore.New(db),
		Log:  logger,
	}
}

// Routes mounts organization management. Only multi SuperAdmins reach it.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireMultiSuperAdmin)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
	})
	return r
}
