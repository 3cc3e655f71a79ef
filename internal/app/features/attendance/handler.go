// internal/app/features/attendance/handler.go
package attendance

import (
	attendancestore "github.com/dalemusser/churchhub/internal/app/store/attendance"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Attendance *attendancestore.Store
	Units      *unitstore.Cache
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, logger *zap.Logger) *Handler {
	return &Handler{Attendance: attendancestore.New(db), Units: units, Log: logger}
}

// Routes mounts headcounts (typically at "/api/attendance").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleSubmit)
	})
	return r
}
