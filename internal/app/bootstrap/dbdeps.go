// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"github.com/dalemusser/churchhub/internal/app/system/presence"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/realtime"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/churchhub/internal/app/system/tasks"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends and long-lived collaborators built once in
// ConnectDB. Startup starts the background parts; Shutdown stops them in
// reverse order.
type DBDeps struct {
	ChurchHubMongoClient   *mongo.Client
	ChurchHubMongoDatabase *mongo.Database

	Units    *unitstore.Cache
	Tokens   *auth.TokenManager
	Auth     *auth.Middleware
	Audit    *auditlog.Logger
	Files    storage.Store
	Presence presence.Registry
	Hub      *realtime.Hub
	Push     *push.Dispatcher

	Scheduler *tasks.Scheduler
	Metrics   *metrics.Metrics
}
