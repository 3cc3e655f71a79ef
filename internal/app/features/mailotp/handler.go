// internal/app/features/mailotp/handler.go
package mailotp

import (
	mailotpstore "github.com/dalemusser/churchhub/internal/app/store/mailotps"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/mailer"
	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler issues and verifies emailed one-time codes.
type Handler struct {
	OTPs     *mailotpstore.Store
	Users    *userstore.Store
	Mailer   mailer.Sender
	Tokens   *auth.TokenManager
	SiteName string
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, otps *mailotpstore.Store, sender mailer.Sender, tokens *auth.TokenManager,
	siteName string, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		OTPs:     otps,
		Users:    userstore.New(db),
		Mailer:   sender,
		Tokens:   tokens,
		SiteName: siteName,
		Audit:    audit,
		Metrics:  m,
		Log:      logger,
	}
}

// Routes mounts the OTP endpoints (typically at "/api/mail-otp").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/send", h.HandleSend)
	r.Post("/verify", h.HandleVerify)
	return r
}
