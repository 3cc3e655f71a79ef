package superadmins

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/app/system/txn"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

type registerRequest struct {
	EmailToken string `json:"email_token"`
	Title      string `json:"title"`
	FirstName  string `json:"first_name"`
	Surname    string `json:"surname"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	ChurchID   string `json:"church_id"`
}

// HandleRegister creates a SuperAdmin account awaiting approval by a multi
// SuperAdmin. The email must have passed mail OTP first.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	claims, err := h.Tokens.Parse(in.EmailToken, auth.PurposeEmailVerify)
	if err != nil {
		respond.Error(w, h.Log, apierr.Authentication("Email verification required"))
		return
	}
	email := normalize.Email(in.Email)
	if email == "" {
		email = claims.Email
	}
	if email != normalize.Email(claims.Email) {
		respond.Error(w, h.Log, apierr.Validation("Email does not match the verified address"))
		return
	}
	if len(in.Password) < 6 {
		respond.Error(w, h.Log, apierr.Validation("password must be at least 6 characters"))
		return
	}
	church, err := shared.RequiredID(in.ChurchID, "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "superadmin register")
	defer cancel()
	if _, err := h.Churches.GetByID(ctx, church); err != nil {
		respond.Error(w, h.Log, apierr.Validation("Church not found"))
		return
	}

	var created models.User
	err = txn.Run(ctx, h.Client, h.Log, func(tx context.Context) error {
		u := models.User{
			Title:                 in.Title,
			FirstName:             in.FirstName,
			Surname:               in.Surname,
			Phone:                 in.Phone,
			Email:                 email,
			IsVerified:            true,
			RegistrationCompleted: true,
			SuperAdminPending:     true,
			ActiveRole:            models.RoleSuperAdmin,
			ChurchID:              &church,
		}
		var err error
		if created, err = h.Users.Create(tx, u, in.Password); err != nil {
			return err
		}
		_, err = h.Memberships.Add(tx, models.Membership{UserID: created.ID, Role: models.RoleSuperAdmin})
		return err
	})
	if err != nil {
		respond.Error(w, h.Log, createErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Auth(ctx, r, audit.EventRegistered, &created.ID, true, "", map[string]string{"role": models.RoleSuperAdmin})
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"user":    created,
		"message": "Registration received. A SuperAdmin must approve your account.",
	})
}

func createErr(err error) error {
	switch {
	case userstore.IsValidation(err):
		return apierr.Validation(err.Error())
	case errors.Is(err, userstore.ErrDuplicatePhone), errors.Is(err, userstore.ErrDuplicateEmail):
		return apierr.Conflict(err.Error())
	}
	return err
}
