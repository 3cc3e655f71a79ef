// Package timeouts holds the deadlines applied to database and provider
// calls made while serving a request.
//
//   - Ping: health checks
//   - Short: single-document reads and writes, user loading for auth
//   - Medium: paginated lists, summaries, scope expansion
//   - Long: transactions and cascades touching several collections
//   - Upload: multipart uploads and object-store writes
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultUpload = 60 * time.Second
)

// EnvPrefix prefixes the environment variables read by ConfigureFromEnv,
// e.g. CHURCHHUB_TIMEOUT_SHORT=8s.
const EnvPrefix = "CHURCHHUB_TIMEOUT_"

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	upload = DefaultUpload
)

func get(d *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *d
}

func Ping() time.Duration   { return get(&ping) }
func Short() time.Duration  { return get(&short) }
func Medium() time.Duration { return get(&medium) }
func Long() time.Duration   { return get(&long) }
func Upload() time.Duration { return get(&upload) }

// Config holds timeout overrides. Zero values keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Upload time.Duration
}

// Configure applies non-zero values from cfg. Call it during startup before
// handlers are built.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range []struct {
		dst *time.Duration
		v   time.Duration
	}{{&ping, cfg.Ping}, {&short, cfg.Short}, {&medium, cfg.Medium}, {&long, cfg.Long}, {&upload, cfg.Upload}} {
		if p.v > 0 {
			*p.dst = p.v
		}
	}
}

// ConfigureFromEnv reads CHURCHHUB_TIMEOUT_{PING,SHORT,MEDIUM,LONG,UPLOAD}.
// Unset, unparsable or non-positive values are ignored. It returns how many
// values were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for _, e := range []struct {
		name string
		dst  *time.Duration
	}{{"PING", &cfg.Ping}, {"SHORT", &cfg.Short}, {"MEDIUM", &cfg.Medium}, {"LONG", &cfg.Long}, {"UPLOAD", &cfg.Upload}} {
		v := os.Getenv(EnvPrefix + e.name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*e.dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// Reset restores the defaults. Tests use it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long, upload = DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultUpload
}

// Current returns the active values, for startup logging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Upload: upload}
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when the
// deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "unit delete cascade")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
