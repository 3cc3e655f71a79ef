// internal/app/features/records/handler.go
package records

import (
	"net/http"

	recordstore "github.com/dalemusser/churchhub/internal/app/store/records"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the unit-scoped record kinds. Each kind shares the same
// list, create, read, update and delete flow and differs only in its
// document shape and create-time unit rule.
type Handler struct {
	Kinds recordstore.Kinds
	Units *unitstore.Cache
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, logger *zap.Logger) *Handler {
	return &Handler{Kinds: recordstore.NewKinds(db), Units: units, Log: logger}
}

// Mount registers every record kind on r under its route segment, e.g.
// "/souls" and "/recovered-addicts".
func Mount(r chi.Router, h *Handler) {
	for path, routes := range h.routers() {
		r.Mount(path, routes)
	}
}

func (h *Handler) routers() map[string]chi.Router {
	return map[string]chi.Router{
		"/souls":             routes(newKind(h, h.Kinds.Souls, "name", "phone")),
		"/invites":           routes(newKind(h, h.Kinds.Invites, "name", "phone").withRule(activeUnitRule)),
		"/achievements":      routes(newKind(h, h.Kinds.Achievements, "title")),
		"/assists":           routes(newKind(h, h.Kinds.Assists, "member_name")),
		"/marriages":         routes(newKind(h, h.Kinds.Marriages, "name")),
		"/recovered-addicts": routes(newKind(h, h.Kinds.RecoveredAddicts, "full_name")),
		"/songs":             routes(newKind(h, h.Kinds.Songs, "title").withRule(musicUnitRule)),
	}
}

type crud interface {
	ServeList(w http.ResponseWriter, r *http.Request)
	ServeOne(w http.ResponseWriter, r *http.Request)
	HandleCreate(w http.ResponseWriter, r *http.Request)
	HandleUpdate(w http.ResponseWriter, r *http.Request)
	HandleDelete(w http.ResponseWriter, r *http.Request)
}

func routes(k crud) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", k.ServeList)
		pr.Post("/", k.HandleCreate)
		pr.Get("/{id}", k.ServeOne)
		pr.Put("/{id}", k.HandleUpdate)
		pr.Delete("/{id}", k.HandleDelete)
	})
	return r
}
