package users

import (
	"errors"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/scope"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

// MinPasswordLength applies to password changes.
const MinPasswordLength = 6

// ServeMe returns the signed-in user with roles and the resolved scope.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{
		"user":  u,
		"scope": scope.Resolve(u, scope.FromRequest(r)),
	})
}

type updateMeRequest struct {
	Title      *string         `json:"title"`
	FirstName  *string         `json:"first_name"`
	MiddleName *string         `json:"middle_name"`
	Surname    *string         `json:"surname"`
	Email      *string         `json:"email"`
	Profile    *models.Profile `json:"profile"`
}

func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in updateMeRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()
	updated, err := h.Users.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{
		Title:      in.Title,
		FirstName:  in.FirstName,
		MiddleName: in.MiddleName,
		Surname:    in.Surname,
		Email:      in.Email,
		Profile:    in.Profile,
	})
	if err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}
	updated.Roles = u.Roles
	respond.Item(w, http.StatusOK, updated)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword requires the current password when one is set.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in changePasswordRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if len(in.NewPassword) < MinPasswordLength {
		respond.Error(w, h.Log, apierr.Validation("password must be at least 6 characters"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "change password")
	defer cancel()
	stored, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}
	if stored.PasswordHash != "" && !userstore.CheckPassword(stored.PasswordHash, in.CurrentPassword) {
		respond.Error(w, h.Log, apierr.Authentication("Current password is incorrect"))
		return
	}
	if err := h.Users.SetPassword(ctx, u.ID, in.NewPassword); err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Auth(ctx, r, audit.EventPasswordChanged, &u.ID, true, "", nil)
	}
	respond.OK(w)
}

// HandleCheckPhone reports whether a phone number is registered.
func (h *Handler) HandleCheckPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		respond.Error(w, h.Log, apierr.Validation("phone required"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "check phone")
	defer cancel()
	exists, err := h.Users.PhoneExists(ctx, phone)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{"exists": exists})
}

// ServeLookupEmail finds an account by email so administrators can assign
// roles to it.
func (h *Handler) ServeLookupEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respond.Error(w, h.Log, apierr.Validation("email required"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "lookup email")
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Fields(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{
		"found": true,
		"user": map[string]any{
			"id":        u.ID,
			"full_name": u.FullName(),
			"email":     u.Email,
			"approved":  u.Approved,
		},
	})
}

func userErr(err error) error {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		return apierr.NotFound("User not found")
	case errors.Is(err, userstore.ErrDuplicatePhone), errors.Is(err, userstore.ErrDuplicateEmail):
		return apierr.Conflict(err.Error())
	case userstore.IsValidation(err):
		return apierr.Validation(err.Error())
	}
	return err
}
