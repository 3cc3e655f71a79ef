// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/waffle/pantry/text"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New allows limit requests per key in each window of length duration.
// Expired windows are swept every 2*duration until Stop is called.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.sweep(duration * 2)
	return l
}

// Allow records one request for key and reports whether it is within the
// limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the sweep goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter limits sign-in attempts per client IP and per identifier
// (phone or email).
type LoginLimiter struct {
	ip *Limiter
	id *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per identifier
// per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

func NewLoginLimiterWithConfig(ipLimit int, ipWindow time.Duration, idLimit int, idWindow time.Duration) *LoginLimiter {
	return &LoginLimiter{ip: New(ipLimit, ipWindow), id: New(idLimit, idWindow)}
}

// Check records an attempt and returns a RateLimited error when either
// limit is exhausted.
func (ll *LoginLimiter) Check(r *http.Request, identifier string) error {
	if !ll.ip.Allow(ClientIP(r)) {
		return apierr.RateLimited("Too many login attempts. Please wait a minute before trying again.")
	}
	if key := text.Fold(identifier); key != "" && !ll.id.Allow(key) {
		return apierr.RateLimited("Too many login attempts for this account. Please wait a few minutes.")
	}
	return nil
}

// Succeeded clears the identifier's window after a successful sign-in.
func (ll *LoginLimiter) Succeeded(identifier string) {
	if key := text.Fold(identifier); key != "" {
		ll.id.Reset(key)
	}
}

func (ll *LoginLimiter) Stop() {
	ll.ip.Stop()
	ll.id.Stop()
}
