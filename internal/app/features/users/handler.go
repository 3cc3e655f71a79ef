// internal/app/features/users/handler.go
package users

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves profile, approval and role-assignment endpoints.
type Handler struct {
	Client      *mongo.Client
	Users       *userstore.Store
	Fetcher     *userstore.Fetcher
	Memberships *membershipstore.Store
	Units       *unitstore.Cache
	Push        shared.Publisher
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, pub shared.Publisher, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	memberships := membershipstore.New(db)
	return &Handler{
		Client:      db.Client(),
		Users:       users,
		Fetcher:     userstore.NewFetcher(users, memberships, units),
		Memberships: memberships,
		Units:       units,
		Push:        pub,
		Audit:       audit,
		Log:         logger,
	}
}
