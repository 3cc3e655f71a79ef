// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	accesscodesfeature "github.com/dalemusser/churchhub/internal/app/features/accesscodes"
	adminfeature "github.com/dalemusser/churchhub/internal/app/features/admin"
	announcementsfeature "github.com/dalemusser/churchhub/internal/app/features/announcements"
	attendancefeature "github.com/dalemusser/churchhub/internal/app/features/attendance"
	auditlogfeature "github.com/dalemusser/churchhub/internal/app/features/auditlog"
	churchesfeature "github.com/dalemusser/churchhub/internal/app/features/churches"
	devicesfeature "github.com/dalemusser/churchhub/internal/app/features/devices"
	eventsfeature "github.com/dalemusser/churchhub/internal/app/features/events"
	financefeature "github.com/dalemusser/churchhub/internal/app/features/finance"
	healthfeature "github.com/dalemusser/churchhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/churchhub/internal/app/features/login"
	mailotpfeature "github.com/dalemusser/churchhub/internal/app/features/mailotp"
	messagesfeature "github.com/dalemusser/churchhub/internal/app/features/messages"
	ministryadminsfeature "github.com/dalemusser/churchhub/internal/app/features/ministryadmins"
	organizationsfeature "github.com/dalemusser/churchhub/internal/app/features/organizations"
	pagesfeature "github.com/dalemusser/churchhub/internal/app/features/pages"
	recordsfeature "github.com/dalemusser/churchhub/internal/app/features/records"
	reportsfeature "github.com/dalemusser/churchhub/internal/app/features/reports"
	superadminsfeature "github.com/dalemusser/churchhub/internal/app/features/superadmins"
	supportfeature "github.com/dalemusser/churchhub/internal/app/features/support"
	testimoniesfeature "github.com/dalemusser/churchhub/internal/app/features/testimonies"
	unitsfeature "github.com/dalemusser/churchhub/internal/app/features/units"
	uploadsfeature "github.com/dalemusser/churchhub/internal/app/features/uploads"
	usersfeature "github.com/dalemusser/churchhub/internal/app/features/users"
	workplansfeature "github.com/dalemusser/churchhub/internal/app/features/workplans"
	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	mailotpstore "github.com/dalemusser/churchhub/internal/app/store/mailotps"
	"github.com/dalemusser/churchhub/internal/app/system/adminauth"
	"github.com/dalemusser/churchhub/internal/app/system/mailer"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// supportTicketsPerHour bounds anonymous ticket creation per client IP.
const supportTicketsPerHour = 5

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The JSON API lives under /api; the
// operator console, health, metrics and uploaded files sit at the root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.ChurchHubMongoDatabase
	secure := coreCfg.Env == "prod"

	adminMgr, err := adminauth.New(adminauth.Config{
		Password:    appCfg.AdminConsolePassword,
		SessionKey:  appCfg.SessionKey,
		SessionName: appCfg.SessionName,
		Secure:      secure,
	}, logger)
	if err != nil {
		logger.Error("admin session manager init failed", zap.Error(err))
		return nil, err
	}

	var sender mailer.Sender = mailer.NewLog(logger)
	if appCfg.SendGridAPIKey != "" {
		sender = mailer.NewSendGrid(appCfg.SendGridAPIKey, appCfg.MailFrom, appCfg.MailFromName)
	}

	codes := accesscodestore.New(db, appCfg.AccessCodeTTL)
	otps := mailotpstore.New(db, otpOptions(appCfg))
	loginLimiter := ratelimit.NewLoginLimiter()
	supportLimiter := ratelimit.New(supportTicketsPerHour, time.Hour)
	pub := deps.Push

	r := chi.NewRouter()
	r.Use(deps.Metrics.Middleware)

	// Ops endpoints for load balancers and scrapers
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.ChurchHubMongoClient, deps.Hub, logger)))
	r.Handle("/metrics", deps.Metrics.Handler())

	// Uploaded files, when stored on local disk
	if local, ok := deps.Files.(*storage.Local); ok {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, local.Root()))
	}

	// Operator console; its cookie is scoped to /admin
	adminHandler := adminfeature.NewHandler(db, adminMgr, ratelimit.NewLoginLimiter(), pub, deps.Hub, deps.Audit, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler))

	r.Route("/api", func(api chi.Router) {
		// Loads the bearer-token user into context when present.
		api.Use(deps.Auth.LoadUser)

		api.Handle("/ws", deps.Hub)

		// Identity
		loginHandler := loginfeature.NewHandler(db, deps.Units, codes, deps.Tokens, loginLimiter, deps.Audit, logger)
		api.Mount("/auth", loginfeature.Routes(loginHandler))

		otpHandler := mailotpfeature.NewHandler(db, otps, sender, deps.Tokens, appCfg.MailFromName, deps.Audit, deps.Metrics, logger)
		api.Mount("/mail-otp", mailotpfeature.Routes(otpHandler))

		usersHandler := usersfeature.NewHandler(db, deps.Units, pub, deps.Audit, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler))

		superHandler := superadminsfeature.NewHandler(db, deps.Units, deps.Tokens, pub, deps.Audit, logger)
		api.Mount("/superadmins", superadminsfeature.Routes(superHandler))

		auditHandler := auditlogfeature.NewHandler(db, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler))

		codesHandler := accesscodesfeature.NewHandler(codes, deps.Units, deps.Audit, logger)
		api.Mount("/access-codes", accesscodesfeature.Routes(codesHandler))

		// Hierarchy
		orgHandler := organizationsfeature.NewHandler(db, logger)
		api.Mount("/organizations", organizationsfeature.Routes(orgHandler))

		churchesHandler := churchesfeature.NewHandler(db, deps.Audit, logger)
		api.Mount("/churches", churchesfeature.Routes(churchesHandler))

		ministryAdminsHandler := ministryadminsfeature.NewHandler(db, deps.Audit, logger)
		api.Mount("/ministry-admins", ministryadminsfeature.Routes(ministryAdminsHandler))

		unitsHandler := unitsfeature.NewHandler(db, deps.Units, deps.Audit, logger)
		api.Mount("/units", unitsfeature.Routes(unitsHandler))

		// Unit records: souls, invites, achievements and the rest
		recordsfeature.Mount(api, recordsfeature.NewHandler(db, deps.Units, logger))

		testimoniesHandler := testimoniesfeature.NewHandler(db, logger)
		api.Mount("/testimonies", testimoniesfeature.Routes(testimoniesHandler))

		financeHandler := financefeature.NewHandler(db, deps.Units, logger)
		api.Mount("/finance", financefeature.Routes(financeHandler))
		api.Mount("/finance-categories", financefeature.CategoryRoutes(financeHandler))

		attendanceHandler := attendancefeature.NewHandler(db, deps.Units, logger)
		api.Mount("/attendance", attendancefeature.Routes(attendanceHandler))

		eventsHandler := eventsfeature.NewHandler(db, deps.Units, pub, logger)
		api.Mount("/events", eventsfeature.Routes(eventsHandler))

		announcementsHandler := announcementsfeature.NewHandler(db, pub, deps.Audit, logger)
		api.Mount("/announcements", announcementsfeature.Routes(announcementsHandler))

		messagesHandler := messagesfeature.NewHandler(db, deps.Units, deps.Presence, deps.Hub, pub, logger)
		api.Mount("/messages", messagesfeature.Routes(messagesHandler))

		devicesHandler := devicesfeature.NewHandler(db, pub, deps.Audit, logger)
		api.Mount("/push", devicesfeature.Routes(devicesHandler))

		workplansHandler := workplansfeature.NewHandler(db, deps.Units, deps.Audit, logger)
		api.Mount("/workplans", workplansfeature.Routes(workplansHandler))

		// Dashboards
		reportsHandler := reportsfeature.NewHandler(db, deps.Units, logger)
		api.Mount("/reports", reportsfeature.Routes(reportsHandler))
		api.Mount("/summary", reportsfeature.SummaryRoutes(reportsHandler))

		// Support, legal pages and uploads
		supportHandler := supportfeature.NewHandler(db, deps.Files, supportLimiter, logger)
		api.Mount("/support", supportfeature.Routes(supportHandler))

		pagesHandler := pagesfeature.NewHandler(db, deps.Audit, logger)
		api.Mount("/legal", pagesfeature.Routes(pagesHandler))

		uploadsHandler := uploadsfeature.NewHandler(deps.Files, appCfg.UploadMaxBytes, logger)
		api.Mount("/uploads", uploadsfeature.Routes(uploadsHandler))
	})

	return r, nil
}
