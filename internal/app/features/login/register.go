package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/app/system/txn"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MinPasswordLength applies to every password set through the API.
const MinPasswordLength = 6

type registerRequest struct {
	AccessCode string `json:"access_code"`
	Title      string `json:"title"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	Surname    string `json:"surname"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// HandleRegister redeems an access code. The code is consumed, the user is
// created and the code's role is assigned in one transaction; the account
// then waits for approval.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in.AccessCode = strings.TrimSpace(in.AccessCode)
	if in.AccessCode == "" {
		respond.Error(w, h.Log, apierr.Validation("access_code required"))
		return
	}
	if len(in.Password) < MinPasswordLength {
		respond.Error(w, h.Log, apierr.Validation("password must be at least 6 characters"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "access-code registration")
	defer cancel()

	var (
		created  models.User
		codeID   primitive.ObjectID
		consumed bool
	)
	err := txn.Run(ctx, h.Client, h.Log, func(tx context.Context) error {
		userID := primitive.NewObjectID()
		ac, err := h.Codes.Consume(tx, in.AccessCode, userID)
		if err != nil {
			return codeErr(err)
		}
		codeID, consumed = ac.ID, true

		u := models.User{
			ID:                    userID,
			Title:                 in.Title,
			FirstName:             in.FirstName,
			MiddleName:            in.MiddleName,
			Surname:               in.Surname,
			Phone:                 in.Phone,
			Email:                 in.Email,
			IsVerified:            true,
			RegistrationCompleted: true,
			ActiveRole:            ac.Role,
		}
		if ac.UnitID != nil {
			unit, err := h.Units.Get(tx, *ac.UnitID)
			if err != nil {
				return apierr.Validation("Access code unit no longer exists")
			}
			u.ChurchID = unit.ChurchID
		}
		created, err = h.Users.Create(tx, u, in.Password)
		if err != nil {
			return userErr(err)
		}
		_, err = h.Memberships.Add(tx, models.Membership{UserID: created.ID, Role: ac.Role, UnitID: ac.UnitID})
		return membershipErr(err)
	})
	if err != nil {
		h.compensate(created.ID, codeID, consumed)
		respond.Error(w, h.Log, err)
		return
	}

	if h.Audit != nil {
		h.Audit.Auth(ctx, r, audit.EventRegistered, &created.ID, true, "", map[string]string{"role": created.ActiveRole})
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"user":    created,
		"message": "Registration received. Your account is awaiting approval.",
	})
}

// compensate undoes the writes of a failed registration that ran without a
// transaction. Inside a transaction both calls find nothing to undo.
func (h *Handler) compensate(user, code primitive.ObjectID, consumed bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	if !user.IsZero() {
		if err := h.Users.Delete(ctx, user); err != nil && !errors.Is(err, userstore.ErrNotFound) {
			h.Log.Warn("registration cleanup: delete user", zap.Error(err))
		}
		_ = h.Memberships.DeleteByUser(ctx, user)
	}
	if consumed {
		if err := h.Codes.Release(ctx, code); err != nil {
			h.Log.Warn("registration cleanup: release code", zap.Error(err))
		}
	}
}

func userErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userstore.ErrDuplicatePhone), errors.Is(err, userstore.ErrDuplicateEmail):
		return apierr.Conflict(err.Error())
	case errors.Is(err, userstore.ErrNotFound):
		return apierr.NotFound(err.Error())
	case userstore.IsValidation(err):
		return apierr.Validation(err.Error())
	}
	return err
}

func membershipErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, membershipstore.ErrUnitHasLeader):
		return apierr.Conflict(err.Error())
	case errors.Is(err, membershipstore.ErrDuplicateRole):
		return apierr.Conflict(err.Error())
	case errors.Is(err, models.ErrBadRole), errors.Is(err, models.ErrRoleNeedsUnit),
		errors.Is(err, models.ErrRoleNeedsScope), errors.Is(err, models.ErrRoleUnexpectedID):
		return apierr.Validation(err.Error())
	}
	return err
}
