package mailotp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	mailotpstore "github.com/dalemusser/churchhub/internal/app/store/mailotps"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/mailer"
	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type sendRequest struct {
	Email string `json:"email"`
}

// HandleSend emails a fresh code. When delivery fails the stored code is
// deleted so it can never be verified, and the provider code is returned.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var in sendRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	email := normalize.Email(in.Email)
	if !normalize.ValidEmail(email) {
		respond.Error(w, h.Log, apierr.Validation("valid email required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "mail otp send")
	defer cancel()

	issued, err := h.OTPs.Create(ctx, email)
	if errors.Is(err, mailotpstore.ErrResendTooSoon) {
		respond.Error(w, h.Log, apierr.RateLimited(err.Error()))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	msg := mailer.BuildOTPEmail(mailer.OTPEmailData{
		SiteName:  h.SiteName,
		Code:      issued.Code,
		ExpiresIn: fmt.Sprintf("%d minutes", int(h.OTPs.Expiry().Minutes())),
	})
	msg.To = email
	if err := h.Mailer.Send(ctx, msg); err != nil {
		h.rollback(issued)
		h.count("failure")
		h.audit(r, audit.EventOTPFailed, email, false, err.Error())

		code := "send_failed"
		var de *mailer.DeliveryError
		if errors.As(err, &de) && de.Code != "" {
			code = de.Code
		}
		respond.Error(w, h.Log, apierr.Upstream("Failed to send verification email", code, err))
		return
	}

	h.count("success")
	h.audit(r, audit.EventOTPSent, email, true, "")
	respond.Fields(w, http.StatusOK, map[string]any{"expires_in": int(h.OTPs.Expiry().Seconds())})
}

func (h *Handler) rollback(issued *mailotpstore.Issued) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	if err := h.OTPs.Delete(ctx, issued.ID); err != nil {
		h.Log.Warn("mail otp: delete after failed delivery", zap.Error(err))
	}
}

func (h *Handler) count(result string) {
	if h.Metrics != nil {
		h.Metrics.OTPSentTotal.WithLabelValues(result).Inc()
	}
}

func (h *Handler) audit(r *http.Request, event, email string, ok bool, reason string) {
	if h.Audit != nil {
		h.Audit.Auth(r.Context(), r, event, nil, ok, reason, map[string]string{"email": email})
	}
}
