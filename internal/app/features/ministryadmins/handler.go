// internal/app/features/ministryadmins/handler.go
package ministryadmins

import (
	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Churches    *churchstore.Store
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Memberships: membershipstore.New(db),
		Churches:    churchstore.New(db),
		Audit:       audit,
		Log:         logger,
	}
}

// Routes mounts the ministry admin endpoints (typically at
// "/api/ministry-admins"). Only multi SuperAdmins reach them.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireMultiSuperAdmin)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleAssign)
	})
	return r
}
