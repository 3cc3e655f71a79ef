// internal/app/features/finance/handler.go
package finance

import (
	financestore "github.com/dalemusser/churchhub/internal/app/store/finance"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves unit finance lines and their categories. Every unit-level
// operation carries the FinancialSecretary duty gate: admins in scope and
// the unit's leader pass it, other members need the duty.
type Handler struct {
	Finance *financestore.Store
	Units   *unitstore.Cache
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, logger *zap.Logger) *Handler {
	return &Handler{Finance: financestore.New(db), Units: units, Log: logger}
}

// Routes mounts finance lines (typically at "/api/finance").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/summary", h.ServeSummary)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})
	return r
}

// CategoryRoutes mounts categories (typically at "/api/finance-categories").
func CategoryRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeCategories)
		pr.Post("/", h.HandleCreateCategory)
		pr.Put("/{id}", h.HandleRenameCategory)
		pr.Delete("/{id}", h.HandleDeleteCategory)
	})
	return r
}
