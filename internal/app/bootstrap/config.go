// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devJWTSecret is the default signing secret. ValidateConfig refuses it in
// prod.
const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for ChurchHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: CHURCHHUB_MONGO_URI, CHURCHHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "church_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer tokens
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 signing secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_expiry", Default: "168h", Desc: "Bearer token lifetime"},
	{Name: "access_code_ttl", Default: "6h", Desc: "Access code lifetime"},

	// Mail OTP
	{Name: "otp_ttl", Default: "10m", Desc: "Email OTP lifetime"},
	{Name: "otp_resend_interval", Default: "45s", Desc: "Minimum wait before another OTP to the same address"},
	{Name: "otp_max_attempts", Default: 5, Desc: "Wrong codes allowed per OTP"},
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key; empty logs emails instead of sending"},
	{Name: "mail_from", Default: "noreply@churchhub.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ChurchHub", Desc: "From display name"},

	// Push
	{Name: "push_provider", Default: "log", Desc: "Push provider: 'log' or 'fcm'"},
	{Name: "fcm_credentials_file", Default: "", Desc: "Firebase service-account JSON file"},
	{Name: "push_queue", Default: "memory", Desc: "Push queue: 'memory' or 'rabbitmq'"},
	{Name: "rabbitmq_url", Default: "", Desc: "RabbitMQ URL for the push queue"},
	{Name: "push_queue_name", Default: "churchhub.push", Desc: "RabbitMQ queue name"},
	{Name: "push_workers", Default: 2, Desc: "Push delivery workers"},
	{Name: "push_queue_size", Default: 256, Desc: "In-memory push queue capacity"},

	// Presence and realtime
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared presence; empty keeps presence in memory"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "ws_allowed_origins", Default: "", Desc: "Comma-separated extra origins allowed to open /ws"},

	// File storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "Custom S3 endpoint (MinIO, R2)"},
	{Name: "storage_public_url", Default: "", Desc: "Public base URL for stored objects (CDN)"},
	{Name: "upload_max_bytes", Default: 10 << 20, Desc: "Largest accepted upload in bytes"},

	// Operator console
	{Name: "admin_console_password", Default: "", Desc: "Operator console password; empty disables the console"},
	{Name: "session_key", Default: devJWTSecret, Desc: "Console session signing key"},
	{Name: "session_name", Default: "churchhub-admin", Desc: "Console session cookie name"},

	// Background jobs
	{Name: "workplan_autostatus_spec", Default: "0 */15 * * * *", Desc: "Cron spec (with seconds) for the work plan auto-status pass"},
	{Name: "purge_spec", Default: "0 0 * * * *", Desc: "Cron spec (with seconds) for purging expired codes"},

	// SuperAdmin bootstrap
	{Name: "superadmin_phone", Default: "", Desc: "Phone of the bootstrap SuperAdmin (created or promoted on startup)"},
	{Name: "superadmin_password", Default: "", Desc: "Password for a newly created bootstrap SuperAdmin"},
	{Name: "superadmin_email", Default: "", Desc: "Email for a newly created bootstrap SuperAdmin"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "unit_cache_size", Default: 1024, Desc: "Units kept in the authorization cache"},
	{Name: "unit_cache_ttl", Default: "5m", Desc: "Unit cache entry lifetime"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig reads .env and config files,
// CHURCHHUB_* environment variables and command-line flags, merged with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CHURCHHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:     appValues.String("jwt_secret"),
		JWTExpiry:     appValues.Duration("jwt_expiry", 7*24*time.Hour),
		AccessCodeTTL: appValues.Duration("access_code_ttl", 6*time.Hour),

		// Mail OTP
		OTPTTL:            appValues.Duration("otp_ttl", 10*time.Minute),
		OTPResendInterval: appValues.Duration("otp_resend_interval", 45*time.Second),
		OTPMaxAttempts:    appValues.Int("otp_max_attempts"),
		SendGridAPIKey:    appValues.String("sendgrid_api_key"),
		MailFrom:          appValues.String("mail_from"),
		MailFromName:      appValues.String("mail_from_name"),

		// Push
		PushProvider:       strings.ToLower(appValues.String("push_provider")),
		FCMCredentialsFile: appValues.String("fcm_credentials_file"),
		PushQueue:          strings.ToLower(appValues.String("push_queue")),
		RabbitMQURL:        appValues.String("rabbitmq_url"),
		PushQueueName:      appValues.String("push_queue_name"),
		PushWorkers:        appValues.Int("push_workers"),
		PushQueueSize:      appValues.Int("push_queue_size"),

		RedisAddr:        appValues.String("redis_addr"),
		RedisPassword:    appValues.String("redis_password"),
		WSAllowedOrigins: splitList(appValues.String("ws_allowed_origins")),

		// File storage
		StorageType:       strings.ToLower(appValues.String("storage_type")),
		StorageLocalPath:  appValues.String("storage_local_path"),
		StorageLocalURL:   appValues.String("storage_local_url"),
		StorageS3Region:   appValues.String("storage_s3_region"),
		StorageS3Bucket:   appValues.String("storage_s3_bucket"),
		StorageS3Prefix:   appValues.String("storage_s3_prefix"),
		StorageS3Endpoint: appValues.String("storage_s3_endpoint"),
		StoragePublicURL:  appValues.String("storage_public_url"),
		UploadMaxBytes:    int64(appValues.Int("upload_max_bytes")),

		AdminConsolePassword: appValues.String("admin_console_password"),
		SessionKey:           appValues.String("session_key"),
		SessionName:          appValues.String("session_name"),

		WorkPlanAutoStatusSpec: appValues.String("workplan_autostatus_spec"),
		PurgeSpec:              appValues.String("purge_spec"),

		SuperAdminPhone:    appValues.String("superadmin_phone"),
		SuperAdminPassword: appValues.String("superadmin_password"),
		SuperAdminEmail:    appValues.String("superadmin_email"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		UnitCacheSize: appValues.Int("unit_cache_size"),
		UnitCacheTTL:  appValues.Duration("unit_cache_ttl", 5*time.Minute),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation. Problems that
// would only surface at first use (a missing bucket, a broker URL) abort
// startup here instead.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if env == "prod" && (appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < 32) {
		return fmt.Errorf("jwt_secret must be set to 32+ random chars in prod")
	}
	switch appCfg.PushProvider {
	case "log":
	case "fcm":
		if appCfg.FCMCredentialsFile == "" {
			return fmt.Errorf("push_provider=fcm requires fcm_credentials_file")
		}
	default:
		return fmt.Errorf("unknown push_provider %q (want 'log' or 'fcm')", appCfg.PushProvider)
	}
	switch appCfg.PushQueue {
	case "memory":
	case "rabbitmq":
		if appCfg.RabbitMQURL == "" {
			return fmt.Errorf("push_queue=rabbitmq requires rabbitmq_url")
		}
	default:
		return fmt.Errorf("unknown push_queue %q (want 'memory' or 'rabbitmq')", appCfg.PushQueue)
	}
	switch appCfg.StorageType {
	case "local":
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want 'local' or 's3')", appCfg.StorageType)
	}
	return nil
}
