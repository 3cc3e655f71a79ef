// internal/app/features/units/handler.go
package units

import (
	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	recordstore "github.com/dalemusser/churchhub/internal/app/store/records"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves units, their memberships and unit-level settings. Reads
// go through the unit cache; every write invalidates the unit's entry.
type Handler struct {
	Client      *mongo.Client
	Units       *unitstore.Cache
	Churches    *churchstore.Store
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Records     recordstore.Kinds
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Client:      db.Client(),
		Units:       units,
		Churches:    churchstore.New(db),
		Users:       userstore.New(db),
		Memberships: membershipstore.New(db),
		Records:     recordstore.NewKinds(db),
		Audit:       audit,
		Log:         logger,
	}
}

// Routes mounts the unit endpoints (typically at "/api/units").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// registrants pick a unit before they have an account
	r.Get("/public", h.ServePublic)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeUnit)
		pr.Get("/{id}/members", h.ServeMembers)
		pr.Get("/{id}/leaders", h.ServeLeaders)
		pr.Get("/{id}/summary", h.ServeSummary)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleMinistryAdmin, models.RoleUnitLeader))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/members", h.HandleAddMember)
		pr.Delete("/{id}/members/{userId}", h.HandleRemoveMember)
		pr.Post("/{id}/duties", h.HandleAddDuty)
		pr.Delete("/{id}/duties", h.HandleRemoveDuty)
		pr.Put("/{id}/report-cards", h.HandleReportCards)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(models.RoleSuperAdmin))
		pr.Post("/{id}/attendance-taking", h.HandleAttendanceTaking)
		pr.Post("/{id}/music", h.HandleMusic)
	})
	return r
}
