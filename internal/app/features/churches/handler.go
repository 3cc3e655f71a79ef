// internal/app/features/churches/handler.go
package churches

import (
	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	organizationstore "github.com/dalemusser/churchhub/internal/app/store/organizations"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves churches and their embedded ministries.
type Handler struct {
	Churches *churchstore.Store
	Orgs     *organizationstore.Store
	Units    *unitstore.Store
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Churches: churchstore.New(db),
		Orgs:     organizationstore.New(db),
		Units:    unitstore.New(db),
		Audit:    audit,
		Log:      logger,
	}
}

// Routes mounts the church endpoints (typically at "/api/churches").
// Reads are open to signed-in users within their churches; writes need a
// multi SuperAdmin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeChurch)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireMultiSuperAdmin)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/ministries", h.HandleAddMinistry)
		pr.Delete("/{id}/ministries/{ministryId}", h.HandleRemoveMinistry)
	})
	return r
}
