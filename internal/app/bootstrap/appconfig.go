// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side: ports, TLS, logging, CORS and body limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string
	JWTExpiry time.Duration

	AccessCodeTTL time.Duration

	// Mail OTP
	OTPTTL            time.Duration
	OTPResendInterval time.Duration
	OTPMaxAttempts    int
	SendGridAPIKey    string // empty selects the log mailer
	MailFrom          string
	MailFromName      string

	// Push notifications
	PushProvider       string // "log" or "fcm"
	FCMCredentialsFile string
	PushQueue          string // "memory" or "rabbitmq"
	RabbitMQURL        string
	PushQueueName      string
	PushWorkers        int
	PushQueueSize      int

	// Presence; an empty address keeps presence in memory
	RedisAddr     string
	RedisPassword string

	// Realtime websocket origins allowed besides the serving host
	WSAllowedOrigins []string

	// File storage
	StorageType       string // "local" or "s3"
	StorageLocalPath  string
	StorageLocalURL   string
	StorageS3Region   string
	StorageS3Bucket   string
	StorageS3Prefix   string
	StorageS3Endpoint string
	StoragePublicURL  string
	UploadMaxBytes    int64

	// Operator console
	AdminConsolePassword string
	SessionKey           string
	SessionName          string

	// Background jobs (cron specs with seconds)
	WorkPlanAutoStatusSpec string
	PurgeSpec              string

	// Bootstrap SuperAdmin, created or promoted on startup
	SuperAdminPhone    string
	SuperAdminPassword string
	SuperAdminEmail    string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// UnitCacheSize bounds the unit descriptor cache used by authorization.
	UnitCacheSize int
	UnitCacheTTL  time.Duration
}
