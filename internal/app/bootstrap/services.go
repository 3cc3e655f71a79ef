// internal/app/bootstrap/services.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	devicetokenstore "github.com/dalemusser/churchhub/internal/app/store/devicetokens"
	mailotpstore "github.com/dalemusser/churchhub/internal/app/store/mailotps"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	workplanstore "github.com/dalemusser/churchhub/internal/app/store/workplans"
	"github.com/dalemusser/churchhub/internal/app/system/auditlog"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"github.com/dalemusser/churchhub/internal/app/system/presence"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/realtime"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/churchhub/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const (
	presenceTTL = 2 * time.Minute
	jobTimeout  = 5 * time.Minute
)

// buildServices fills deps with everything that outlives a request.
func buildServices(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps *DBDeps, logger *zap.Logger) error {
	db := deps.ChurchHubMongoDatabase

	deps.Metrics = metrics.New(nil)
	deps.Units = unitstore.NewCache(unitstore.New(db), appCfg.UnitCacheSize, appCfg.UnitCacheTTL)
	deps.Tokens = auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTExpiry)
	fetcher := userstore.NewFetcher(userstore.New(db), membershipstore.New(db), deps.Units)
	deps.Auth = auth.NewMiddleware(deps.Tokens, fetcher, logger)
	deps.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	files, err := buildStorage(ctx, appCfg)
	if err != nil {
		return err
	}
	deps.Files = files

	if appCfg.RedisAddr != "" {
		reg, err := presence.NewRedis(appCfg.RedisAddr, appCfg.RedisPassword, presenceTTL)
		if err != nil {
			return fmt.Errorf("redis presence: %w", err)
		}
		deps.Presence = reg
		logger.Info("presence backed by redis", zap.String("addr", appCfg.RedisAddr))
	} else {
		deps.Presence = presence.NewMemory()
	}
	deps.Hub = realtime.NewHub(deps.Auth, deps.Presence, appCfg.WSAllowedOrigins, logger, deps.Metrics)

	dispatcher, err := buildPush(ctx, appCfg, deps, logger)
	if err != nil {
		return err
	}
	deps.Push = dispatcher

	deps.Scheduler = tasks.NewScheduler(logger, deps.Metrics, jobTimeout)
	jobs := []tasks.Job{
		tasks.WorkPlanAutoStatusJob(workplanstore.New(db), logger, appCfg.WorkPlanAutoStatusSpec),
		tasks.PurgeJob("purge_access_codes", accesscodestore.New(db, appCfg.AccessCodeTTL), logger, appCfg.PurgeSpec),
		tasks.PurgeJob("purge_mail_otps", mailotpstore.New(db, otpOptions(appCfg)), logger, appCfg.PurgeSpec),
	}
	for _, j := range jobs {
		if err := deps.Scheduler.Add(j); err != nil {
			return err
		}
	}
	return nil
}

func otpOptions(appCfg AppConfig) mailotpstore.Options {
	return mailotpstore.Options{
		Expiry:         appCfg.OTPTTL,
		ResendInterval: appCfg.OTPResendInterval,
		MaxAttempts:    appCfg.OTPMaxAttempts,
	}
}

func buildStorage(ctx context.Context, appCfg AppConfig) (storage.Store, error) {
	if appCfg.StorageType == "s3" {
		s, err := storage.NewS3(ctx, storage.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			Endpoint:  appCfg.StorageS3Endpoint,
			PublicURL: appCfg.StoragePublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		return s, nil
	}
	l, err := storage.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return l, nil
}

func buildPush(ctx context.Context, appCfg AppConfig, deps *DBDeps, logger *zap.Logger) (*push.Dispatcher, error) {
	var provider push.Provider = push.NewLogProvider(logger)
	if appCfg.PushProvider == "fcm" {
		fcm, err := push.NewFCM(ctx, appCfg.FCMCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("fcm: %w", err)
		}
		provider = fcm
	}

	var queue push.Queue
	if appCfg.PushQueue == "rabbitmq" {
		q, err := push.NewRabbitQueue(appCfg.RabbitMQURL, appCfg.PushQueueName, logger)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		queue = q
	} else {
		queue = push.NewMemoryQueue(appCfg.PushQueueSize)
	}
	tokens := devicetokenstore.New(deps.ChurchHubMongoDatabase)
	return push.NewDispatcher(queue, provider, tokens, appCfg.PushWorkers, logger, deps.Metrics), nil
}

// closeServices releases whatever buildServices created, in reverse order.
// Missing pieces are skipped so it is safe after a partial build.
func closeServices(ctx context.Context, deps DBDeps, logger *zap.Logger) {
	if deps.Scheduler != nil {
		deps.Scheduler.Stop(ctx)
	}
	if deps.Push != nil {
		if err := deps.Push.Stop(); err != nil {
			logger.Warn("push queue close failed", zap.Error(err))
		}
	}
	if deps.Hub != nil {
		deps.Hub.Close()
	}
	if deps.Presence != nil {
		if err := deps.Presence.Close(); err != nil {
			logger.Warn("presence close failed", zap.Error(err))
		}
	}
}
