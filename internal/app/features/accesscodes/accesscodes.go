package accesscodes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type issueRequest struct {
	Role   string `json:"role"`
	UnitID string `json:"unit_id"`
}

// HandleIssue creates a single-use registration code. SuperAdmins may
// issue any code within their church scope; unit leaders may issue Member
// codes for the units they lead.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in issueRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	role := strings.TrimSpace(in.Role)
	switch role {
	case models.RoleSuperAdmin, models.RoleUnitLeader, models.RoleMember:
	default:
		respond.Error(w, h.Log, apierr.Validation("role must be SuperAdmin, UnitLeader or Member"))
		return
	}
	unitID, err := shared.OptionalID(in.UnitID, "unit_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if role == models.RoleSuperAdmin && unitID != nil {
		respond.Error(w, h.Log, apierr.Validation("SuperAdmin codes carry no unit"))
		return
	}
	if role != models.RoleSuperAdmin && unitID == nil {
		respond.Error(w, h.Log, apierr.Validation("unit_id required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "issue access code")
	defer cancel()

	var church *primitive.ObjectID
	if unitID != nil {
		unit, _, err := shared.LoadUnit(ctx, h.Units, *unitID)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		church = unit.ChurchID
	}
	if err := mayIssue(u, role, unitID, church); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ac, err := h.Codes.Issue(ctx, role, unitID, u.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventAccessCodeIssued, u.ID, nil, church, map[string]string{"role": role})
	}
	respond.Item(w, http.StatusCreated, ac)
}

func mayIssue(u *models.User, role string, unit, church *primitive.ObjectID) error {
	ok, reason := authz.SuperAdminInScope(u, church)
	if ok {
		return nil
	}
	if role == models.RoleMember && unit != nil && u.LeadsUnit(*unit) {
		return nil
	}
	switch {
	case u.IsSuperAdmin():
		return apierr.Forbidden(reason)
	case role != models.RoleMember:
		return apierr.Forbidden("Only a SuperAdmin can issue " + role + " codes")
	}
	return apierr.Forbidden(authz.ReasonOutOfUnit)
}

type validateRequest struct {
	Code string `json:"code"`
}

// HandleValidate reports the role a code grants without consuming it.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var in validateRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		respond.Error(w, h.Log, apierr.Validation("code required"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "validate access code")
	defer cancel()
	ac, err := h.Codes.Validate(ctx, code)
	switch {
	case errors.Is(err, accesscodestore.ErrInvalid),
		errors.Is(err, accesscodestore.ErrUsed),
		errors.Is(err, accesscodestore.ErrExpired):
		respond.Error(w, h.Log, apierr.Validation(err.Error()))
		return
	case err != nil:
		respond.Error(w, h.Log, err)
		return
	}
	out := map[string]any{"valid": true, "role": ac.Role, "expires_at": ac.ExpiresAt}
	if ac.UnitID != nil {
		out["unit_id"] = ac.UnitID
		if unit, err := h.Units.Get(ctx, *ac.UnitID); err == nil {
			out["unit_name"] = unit.Name
		}
	}
	respond.Fields(w, http.StatusOK, out)
}
