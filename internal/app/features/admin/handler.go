// internal/app/features/admin/handler.go
package admin

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	attendancestore "github.com/dalemusser/churchhub/internal/app/store/attendance"
	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	recordstore "github.com/dalemusser/churchhub/internal/app/store/records"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/adminauth"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ConnCounter reports open realtime connections.
type ConnCounter interface {
	Connections() int
}

// Handler serves the operator console. It sits outside the user session
// model: operators sign in with the console password only.
type Handler struct {
	Auth       *adminauth.Manager
	Limiter    *ratelimit.LoginLimiter
	Users      *userstore.Store
	Churches   *churchstore.Store
	Units      *unitstore.Store
	Attendance *attendancestore.Store
	Records    recordstore.Kinds
	Push       shared.Publisher
	Live       ConnCounter // optional
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, mgr *adminauth.Manager, limiter *ratelimit.LoginLimiter, pub shared.Publisher, live ConnCounter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	return &Handler{
		Auth:       mgr,
		Limiter:    limiter,
		Users:      userstore.New(db),
		Churches:   churchstore.New(db),
		Units:      unitstore.New(db),
		Attendance: attendancestore.New(db),
		Records:    recordstore.NewKinds(db),
		Push:       pub,
		Live:       live,
		Audit:      audit,
		Log:        logger,
	}
}

// Routes mounts the console (typically at "/admin").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.Group(func(pr chi.Router) {
		pr.Use(h.Auth.Require)
		pr.Get("/summary", h.ServeSummary)
		pr.Post("/push", h.HandlePush)
		pr.Post("/logout", h.HandleLogout)
	})
	return r
}
