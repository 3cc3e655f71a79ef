// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the audit trail to SuperAdmins.
type Handler struct {
	Events *audit.Store
	Users  *userstore.Store
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Users:  userstore.New(db),
		Log:    logger,
	}
}
