// internal/app/features/superadmins/handler.go
package superadmins

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves SuperAdmin self-registration, approval and church
// switching.
type Handler struct {
	Client      *mongo.Client
	Users       *userstore.Store
	Fetcher     *userstore.Fetcher
	Memberships *membershipstore.Store
	Churches    *churchstore.Store
	Tokens      *auth.TokenManager
	Push        shared.Publisher
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, tokens *auth.TokenManager, pub shared.Publisher,
	audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	memberships := membershipstore.New(db)
	return &Handler{
		Client:      db.Client(),
		Users:       users,
		Fetcher:     userstore.NewFetcher(users, memberships, units),
		Memberships: memberships,
		Churches:    churchstore.New(db),
		Tokens:      tokens,
		Push:        pub,
		Audit:       audit,
		Log:         logger,
	}
}

// Routes mounts the SuperAdmin endpoints (typically at "/api/superadmins").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireMultiSuperAdmin)
		pr.Get("/pending", h.ServePending)
		pr.Post("/approve", h.HandleApprove)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Get("/churches", h.ServeChurches)
		pr.Post("/switch-church", h.HandleSwitchChurch)
	})
	return r
}
