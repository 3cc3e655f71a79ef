// internal/app/features/login/handler.go
package login

import (
	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sign-in, access-code registration and role switching.
type Handler struct {
	Client      *mongo.Client
	Users       *userstore.Store
	Fetcher     *userstore.Fetcher
	Memberships *membershipstore.Store
	Codes       *accesscodestore.Store
	Units       *unitstore.Cache
	Tokens      *auth.TokenManager
	Limiter     *ratelimit.LoginLimiter
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, codes *accesscodestore.Store, tokens *auth.TokenManager,
	limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	memberships := membershipstore.New(db)
	return &Handler{
		Client:      db.Client(),
		Users:       users,
		Fetcher:     userstore.NewFetcher(users, memberships, units),
		Memberships: memberships,
		Codes:       codes,
		Units:       units,
		Tokens:      tokens,
		Limiter:     limiter,
		Audit:       audit,
		Log:         logger,
	}
}
