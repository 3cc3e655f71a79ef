// internal/app/features/devices/handler.go
package devices

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	devicetokenstore "github.com/dalemusser/churchhub/internal/app/store/devicetokens"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler registers push device tokens and sends admin broadcasts.
type Handler struct {
	Tokens *devicetokenstore.Store
	Users  *userstore.Store
	Push   shared.Publisher
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, pub shared.Publisher, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Tokens: devicetokenstore.New(db),
		Users:  userstore.New(db),
		Push:   pub,
		Audit:  audit,
		Log:    logger,
	}
}

// Routes mounts push registration (typically at "/api/push").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/register", h.HandleRegister)
		pr.Delete("/register", h.HandleUnregister)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Post("/broadcast", h.HandleBroadcast)
	})
	return r
}
