// internal/app/features/reports/handler.go
package reports

import (
	attendancestore "github.com/dalemusser/churchhub/internal/app/store/attendance"
	eventstore "github.com/dalemusser/churchhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	recordstore "github.com/dalemusser/churchhub/internal/app/store/records"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the dashboard summaries. Both endpoints only count; the
// visible set comes from the caller's resolved scope.
type Handler struct {
	Records     recordstore.Kinds
	Attendance  *attendancestore.Store
	Events      *eventstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Units       *unitstore.Cache
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, units *unitstore.Cache, logger *zap.Logger) *Handler {
	return &Handler{
		Records:     recordstore.NewKinds(db),
		Attendance:  attendancestore.New(db),
		Events:      eventstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Units:       units,
		Log:         logger,
	}
}
