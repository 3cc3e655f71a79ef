// internal/app/features/messages/handler.go
package messages

import (
	"github.com/dalemusser/churchhub/internal/app/features/shared"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	messagestore "github.com/dalemusser/churchhub/internal/app/store/messages"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/presence"
	"github.com/dalemusser/churchhub/internal/app/system/realtime"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sender delivers an event to the live connections of users. The realtime
// hub implements it.
type Sender interface {
	Send(users []primitive.ObjectID, ev realtime.Event) int
}

// Handler serves direct and unit messages. A message counts as delivered
// when any recipient is online; offline recipients get a push instead.
type Handler struct {
	Messages    *messagestore.Store
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Units       *unitstore.Cache
	Presence    presence.Registry
	Live        Sender
	Push        shared.Publisher
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, reg presence.Registry, live Sender, pub shared.Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		Messages:    messagestore.New(db),
		Users:       userstore.New(db),
		Memberships: membershipstore.New(db),
		Units:       units,
		Presence:    reg,
		Live:        live,
		Push:        pub,
		Log:         logger,
	}
}

// Routes mounts messaging (typically at "/api/messages").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/", h.HandleSend)
		pr.Get("/inbox", h.ServeInbox)
		pr.Get("/unread", h.ServeUnread)
		pr.Get("/conversation/{userId}", h.ServeConversation)
		pr.Get("/unit/{unitId}", h.ServeUnit)
		pr.Post("/{id}/read", h.HandleRead)
		pr.Post("/{id}/archive", h.HandleArchive)
		pr.Delete("/{id}", h.HandleDelete)
	})
	return r
}
