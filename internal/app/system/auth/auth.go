package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrUserNotFound is returned by a UserFetcher for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// UserFetcher loads a user with roles assembled from memberships.
type UserFetcher interface {
	FetchWithRoles(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user loaded for this request & “found?” flag.
func CurrentUser(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*models.User)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Tests use it to bypass
// token verification.
func WithTestUser(r *http.Request, u *models.User) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// BearerToken extracts the token from the Authorization header, falling
// back to the token query parameter (used by websocket clients).
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Middleware verifies bearer tokens and loads the caller.
type Middleware struct {
	Tokens *TokenManager
	Users  UserFetcher
	Log    *zap.Logger
}

func NewMiddleware(tokens *TokenManager, users UserFetcher, logger *zap.Logger) *Middleware {
	return &Middleware{Tokens: tokens, Users: users, Log: logger}
}

// LoadUser injects the user into context when a valid token is present.
// Requests without a token pass through anonymously; requests with a bad
// token are rejected with 401.
func (m *Middleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := m.Authenticate(r.Context(), raw)
		if err != nil {
			respond.Error(w, m.Log, err)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// Authenticate resolves a raw session token to a loaded user. The token's
// active role applies while the user still holds it.
func (m *Middleware) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := m.Tokens.Parse(raw, PurposeSession)
	if err != nil {
		return nil, apierr.Unauthorized()
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apierr.Unauthorized()
	}
	u, err := m.Users.FetchWithRoles(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apierr.Unauthorized()
		}
		return nil, apierr.Internal(err)
	}
	if claims.ActiveRole != "" && u.HasRole(claims.ActiveRole) {
		u.ActiveRole = claims.ActiveRole
	}
	return u, nil
}

// RequireSignedIn rejects anonymous callers with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.Error(w, nil, apierr.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits callers holding any of the given roles.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Error(w, nil, apierr.Unauthorized())
				return
			}
			for _, role := range allowed {
				if u.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Error(w, nil, apierr.Forbidden("forbidden"))
		})
	}
}

// RequireMultiSuperAdmin admits only SuperAdmins with cross-church rights.
func RequireMultiSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			respond.Error(w, nil, apierr.Unauthorized())
			return
		}
		if !u.IsMultiSuperAdmin() {
			respond.Error(w, nil, apierr.Forbidden("Multi SuperAdmin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
