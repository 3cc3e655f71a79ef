// internal/app/system/wsauth/wsauth.go
// Package wsauth authenticates websocket upgrade requests.
package wsauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

// Authenticator resolves a raw session token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, error)
}

// protocolPrefix marks a token carried in Sec-WebSocket-Protocol, which
// browsers can set when they cannot send an Authorization header.
const protocolPrefix = "bearer."

// Token extracts the session token from a websocket upgrade request. The
// Authorization header and the token query parameter are checked first, then
// a "bearer.<token>" subprotocol.
func Token(r *http.Request) string {
	if t := auth.BearerToken(r); t != "" {
		return t
	}
	for _, p := range strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, protocolPrefix) {
			return strings.TrimPrefix(p, protocolPrefix)
		}
	}
	return ""
}

// Authenticate returns the caller of an upgrade request or a 401 error.
func Authenticate(r *http.Request, a Authenticator) (*models.User, error) {
	raw := Token(r)
	if raw == "" {
		return nil, apierr.Unauthorized()
	}
	return a.Authenticate(r.Context(), raw)
}

// OriginChecker allows same-host requests, requests without an Origin
// header (native clients), and any origin host listed in allowed.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			set[a] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(u.Host)
		return host == strings.ToLower(r.Host) || set[host] || set["*"]
	}
}
