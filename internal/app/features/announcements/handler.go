// internal/app/features/announcements/handler.go
package announcements

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	announcementstore "github.com/dalemusser/churchhub/internal/app/store/announcements"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all Announcements handlers.
type Handler struct {
	Store *announcementstore.Store
	Users *userstore.Store
	Push  shared.Publisher
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs an Announcements Handler.
func NewHandler(db *mongo.Database, pub shared.Publisher, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Store: announcementstore.New(db),
		Users: userstore.New(db),
		Push:  pub,
		Audit: audit,
		Log:   logger,
	}
}
