package login

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.uber.org/zap"
)

type loginRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

const msgInvalidCredentials = "Invalid credentials"

// HandleLogin signs in with phone or email plus password and returns a
// session token carrying the active role.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	identifier := strings.TrimSpace(in.Phone)
	if identifier == "" {
		identifier = strings.TrimSpace(in.Email)
	}
	if identifier == "" || in.Password == "" {
		respond.Error(w, h.Log, apierr.Validation("phone or email and password required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "login")
	defer cancel()

	if h.Limiter != nil {
		if err := h.Limiter.Check(r, identifier); err != nil {
			h.audit(r, audit.EventLoginFailedRateLimit, nil, false, "rate limited", identifier)
			respond.Error(w, h.Log, err)
			return
		}
	}

	var (
		u   *models.User
		err error
	)
	if in.Phone != "" {
		u, err = h.Users.GetByPhone(ctx, in.Phone)
	} else {
		u, err = h.Users.GetByEmail(ctx, in.Email)
	}
	if errors.Is(err, userstore.ErrNotFound) {
		h.audit(r, audit.EventLoginFailedUserNotFound, nil, false, "user not found", identifier)
		respond.Error(w, h.Log, apierr.Authentication(msgInvalidCredentials))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !userstore.CheckPassword(u.PasswordHash, in.Password) {
		h.audit(r, audit.EventLoginFailedWrongPassword, u, false, "wrong password", identifier)
		respond.Error(w, h.Log, apierr.Authentication(msgInvalidCredentials))
		return
	}
	if !u.Approved {
		respond.Error(w, h.Log, apierr.Forbidden("Account pending approval"))
		return
	}

	if err := h.Fetcher.Populate(ctx, u); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	role := u.EffectiveRole()
	if role != u.ActiveRole {
		if err := h.Users.SetActiveRole(ctx, u.ID, role); err != nil {
			h.Log.Warn("login: persist active role", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
		u.ActiveRole = role
	}
	token, err := h.Tokens.IssueSession(u.ID, role)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.Succeeded(identifier)
	}
	h.audit(r, audit.EventLoginSuccess, u, true, "", identifier)

	respond.Fields(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(h.Tokens.TTL().Seconds()),
		"user":       u,
	})
}

func (h *Handler) audit(r *http.Request, event string, u *models.User, ok bool, reason, identifier string) {
	if h.Audit == nil {
		return
	}
	details := map[string]string{"identifier": identifier}
	if u == nil {
		h.Audit.Auth(r.Context(), r, event, nil, ok, reason, details)
		return
	}
	h.Audit.Auth(r.Context(), r, event, &u.ID, ok, reason, details)
}
