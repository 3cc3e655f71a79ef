package mailotp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	mailotpstore "github.com/dalemusser/churchhub/internal/app/store/mailotps"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandleVerify checks a code. Success marks matching accounts verified and
// returns a short-lived email-verification token.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	email := normalize.Email(in.Email)
	code := strings.TrimSpace(in.Code)
	if email == "" || code == "" {
		respond.Error(w, h.Log, apierr.Validation("email and code required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mail otp verify")
	defer cancel()

	err := h.OTPs.Verify(ctx, email, code)
	switch {
	case errors.Is(err, mailotpstore.ErrTooManyAttempts):
		respond.Error(w, h.Log, apierr.RateLimited(err.Error()))
		return
	case errors.Is(err, mailotpstore.ErrInvalidCode), errors.Is(err, mailotpstore.ErrNotFound):
		respond.Error(w, h.Log, apierr.Validation(err.Error()))
		return
	case err != nil:
		respond.Error(w, h.Log, err)
		return
	}

	if err := h.Users.MarkVerified(ctx, email); err != nil {
		h.Log.Warn("mail otp: mark verified", zap.Error(err))
	}
	token, err := h.Tokens.IssueEmailVerification(email)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.audit(r, audit.EventOTPVerified, email, true, "")
	respond.Fields(w, http.StatusOK, map[string]any{"token": token, "expires_in": 1800})
}
