package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

type addRoleRequest struct {
	Role         string `json:"role"`
	UnitID       string `json:"unit_id"`
	ChurchID     string `json:"church_id"`
	MinistryName string `json:"ministry_name"`
}

// HandleAddRole grants a role to a user. One leader per unit is enforced by
// the memberships index.
func (h *Handler) HandleAddRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	userID, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in addRoleRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	m := models.Membership{UserID: userID, Role: strings.TrimSpace(in.Role), MinistryName: in.MinistryName}
	if !models.ValidRole(m.Role) {
		respond.Error(w, h.Log, apierr.Validation("invalid role"))
		return
	}
	if m.UnitID, err = shared.OptionalID(in.UnitID, "unit_id"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if m.ChurchID, err = shared.OptionalID(in.ChurchID, "church_id"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add role")
	defer cancel()
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}
	if err := h.authorizeRole(ctx, caller, m); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	added, err := h.Memberships.Add(ctx, m)
	switch {
	case errors.Is(err, membershipstore.ErrDuplicateRole):
		respond.Error(w, h.Log, apierr.Conflict("User already has "+m.Role+" role for this unit"))
		return
	case err != nil:
		respond.Error(w, h.Log, membershipErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventRoleAssigned, caller.ID, &userID, m.ChurchID, map[string]string{"role": m.Role})
	}
	respond.Item(w, http.StatusCreated, added)
}

// HandleRemoveRole deletes one of the user's role assignments.
func (h *Handler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	userID, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	membershipID, err := shared.IDParam(r, "membershipId")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove role")
	defer cancel()
	m, err := h.Memberships.Get(ctx, membershipID)
	if err != nil || m.UserID != userID {
		respond.Error(w, h.Log, apierr.NotFound("Role not found"))
		return
	}
	if err := h.authorizeRole(ctx, caller, *m); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Memberships.Remove(ctx, membershipID); err != nil {
		respond.Error(w, h.Log, membershipErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventRoleRemoved, caller.ID, &userID, m.ChurchID, map[string]string{"role": m.Role})
	}
	respond.OK(w)
}

// authorizeRole decides who may grant or revoke m. SuperAdmin roles need a
// multi SuperAdmin; MinistryAdmin roles a SuperAdmin over that church;
// leaders are placed by admins in scope; members by anyone managing the unit.
func (h *Handler) authorizeRole(ctx context.Context, caller *models.User, m models.Membership) error {
	switch m.Role {
	case models.RoleSuperAdmin:
		if !caller.IsMultiSuperAdmin() {
			return apierr.Forbidden(authz.ReasonOnlyMultiApprovesSA)
		}
		return nil
	case models.RoleMinistryAdmin:
		if ok, reason := authz.SuperAdminInScope(caller, m.ChurchID); !ok {
			return apierr.Forbidden(reason)
		}
		return nil
	}

	if m.UnitID == nil {
		return apierr.Validation(models.ErrRoleNeedsUnit.Error())
	}
	unit, ref, err := shared.LoadUnit(ctx, h.Units, *m.UnitID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleUnitLeader {
		if ok, _ := authz.SuperAdminInScope(caller, unit.ChurchID); ok {
			return nil
		}
		if authz.MinistryAdminInScope(caller, unit.ChurchID, unit.MinistryName) {
			return nil
		}
		return apierr.Forbidden(authz.ReasonOutOfMinistry)
	}
	return authz.Require(caller, authz.ActionManage, authz.Resource{Unit: ref})
}

func membershipErr(err error) error {
	switch {
	case errors.Is(err, membershipstore.ErrUnitHasLeader):
		return apierr.Conflict(err.Error())
	case errors.Is(err, membershipstore.ErrDuplicateRole):
		return apierr.Conflict(err.Error())
	case errors.Is(err, membershipstore.ErrNotFound):
		return apierr.NotFound("Role not found")
	case errors.Is(err, models.ErrBadRole), errors.Is(err, models.ErrRoleNeedsUnit),
		errors.Is(err, models.ErrRoleNeedsScope), errors.Is(err, models.ErrRoleUnexpectedID):
		return apierr.Validation(err.Error())
	}
	return err
}
