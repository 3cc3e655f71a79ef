// internal/app/features/pages/handler.go
package pages

import (
	pagestore "github.com/dalemusser/churchhub/internal/app/store/pages"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the legal page view and edit handlers.
type Handler struct {
	Pages *pagestore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Pages: pagestore.New(db),
		Audit: audit,
		Log:   logger,
	}
}
