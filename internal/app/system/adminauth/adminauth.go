// Package adminauth guards the operator console with a password and a
// signed cookie session.
package adminauth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultSessionName = "churchhub-admin"

	isAdminKey  = "is_admin"
	signedInKey = "signed_in_at"
)

// ErrDisabled is returned when no console password is configured.
var ErrDisabled = errors.New("admin console disabled")

type Config struct {
	Password    string
	SessionKey  string
	SessionName string
	Secure      bool
	MaxAge      time.Duration
}

// Manager checks the console password and tracks signed-in operators in a
// cookie session.
type Manager struct {
	store *sessions.CookieStore
	name  string
	hash  []byte
	log   *zap.Logger
}

// New returns a Manager. An empty password yields a Manager whose Login
// always fails with ErrDisabled.
func New(cfg Config, logger *zap.Logger) (*Manager, error) {
	if cfg.SessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide 32+ random chars")
	}
	if len(cfg.SessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(cfg.SessionKey)))
	}
	m := &Manager{name: cfg.SessionName, log: logger}
	if m.name == "" {
		m.name = DefaultSessionName
	}
	if cfg.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		m.hash = h
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 12 * time.Hour
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.Options = &sessions.Options{
		Path:     "/admin",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Secure {
		store.Options.SameSite = http.SameSiteStrictMode
	}
	m.store = store
	return m, nil
}

func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Debug("admin cookie invalid, using fresh session", zap.Error(err))
		} else {
			m.log.Warn("admin session store error", zap.Error(err))
		}
	}
	return sess
}

// SignedIn reports whether r carries a valid console session.
func (m *Manager) SignedIn(r *http.Request) bool {
	ok, _ := m.session(r).Values[isAdminKey].(bool)
	return ok
}

// Login checks password and starts a session.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, password string) error {
	if m.hash == nil {
		return ErrDisabled
	}
	if bcrypt.CompareHashAndPassword(m.hash, []byte(password)) != nil {
		return apierr.Authentication("Invalid password")
	}
	sess := m.session(r)
	sess.Values[isAdminKey] = true
	sess.Values[signedInKey] = time.Now().UTC().Unix()
	return sess.Save(r, w)
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Require rejects requests without a console session with 401.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.SignedIn(r) {
			respond.Error(w, m.log, apierr.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}
