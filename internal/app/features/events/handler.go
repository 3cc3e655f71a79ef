// internal/app/features/events/handler.go
package events

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	eventstore "github.com/dalemusser/churchhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves unit, church-wide and global events. Creating an event
// with a reminder, and every church-wide event, notifies the audience.
type Handler struct {
	Events      *eventstore.Store
	Units       *unitstore.Cache
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Push        shared.Publisher
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, pub shared.Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		Events:      eventstore.New(db),
		Units:       units,
		Users:       userstore.New(db),
		Memberships: membershipstore.New(db),
		Push:        pub,
		Log:         logger,
	}
}

// Routes mounts events (typically at "/api/events").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/upcoming", h.ServeUpcoming)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})
	return r
}
