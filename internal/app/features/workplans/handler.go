// internal/app/features/workplans/handler.go
package workplans

import (
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	workplanstore "github.com/dalemusser/churchhub/internal/app/store/workplans"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves work plans: editing by the owner side, review by
// SuperAdmins, and the lazy end-date status pass.
type Handler struct {
	Plans *workplanstore.Store
	Units *unitstore.Cache
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Plans: workplanstore.New(db), Units: units, Audit: audit, Log: logger}
}

// Routes mounts work plans (typically at "/api/workplans").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeGet)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)

		pr.Post("/{id}/submit", h.HandleSubmit)
		pr.Post("/{id}/activity-progress", h.HandleActivityProgress)
		pr.Post("/{id}/activity-comment", h.HandleActivityComment)

		// review side; the un-prefixed approve/reject are kept for older clients
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/reject", h.HandleReject)
		pr.Post("/{id}/review/approve", h.HandleApprove)
		pr.Post("/{id}/review/reject", h.HandleReject)
		pr.Post("/{id}/review/comment", h.HandleReviewComment)
		pr.Post("/{id}/review/activity", h.HandleReviewActivity)
		pr.Post("/{id}/review/activity/comment", h.HandleActivityReviewComment)
		pr.Post("/{id}/success-rate", h.HandleSuccessRate)
	})
	return r
}
