package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
)

type startRequest struct {
	Phone      string `json:"phone"`
	AccessCode string `json:"access_code"`
}

// HandleStart tells the client which screen comes next: registration for a
// valid access code, password sign-in for a registered phone.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var in startRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if code := strings.TrimSpace(in.AccessCode); code != "" {
		ac, err := h.Codes.Validate(ctx, code)
		if err != nil {
			respond.Error(w, h.Log, codeErr(err))
			return
		}
		respond.Fields(w, http.StatusOK, map[string]any{"next": "register", "role": ac.Role})
		return
	}

	if strings.TrimSpace(in.Phone) == "" {
		respond.Error(w, h.Log, apierr.Validation("phone or access_code required"))
		return
	}
	phone := normalize.Phone(in.Phone)
	if phone == "" {
		respond.Error(w, h.Log, apierr.Validation("Invalid phone"))
		return
	}
	u, err := h.Users.GetByPhone(ctx, phone)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, h.Log, apierr.NotFound("Number not registered. Contact your unit head."))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{
		"next":        "login",
		"first_name":  u.FirstName,
		"approved":    u.Approved,
		"active_role": u.ActiveRole,
	})
}

// codeErr maps access-code store errors to API errors.
func codeErr(err error) error {
	switch {
	case errors.Is(err, accesscodestore.ErrInvalid),
		errors.Is(err, accesscodestore.ErrUsed),
		errors.Is(err, accesscodestore.ErrExpired):
		return apierr.Validation(err.Error())
	}
	return err
}
