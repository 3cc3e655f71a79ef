package units

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memberRow is one user's role in a unit.
type memberRow struct {
	MembershipID primitive.ObjectID `json:"membership_id"`
	Role         string             `json:"role"`
	Duties       []string           `json:"duties"`
	UserID       primitive.ObjectID `json:"user_id"`
	FirstName    string             `json:"first_name"`
	Surname      string             `json:"surname"`
	Phone        string             `json:"phone"`
	Email        string             `json:"email,omitempty"`
	Avatar       string             `json:"avatar,omitempty"`
}

func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	h.serveRole(w, r, models.RoleMember)
}

func (h *Handler) ServeLeaders(w http.ResponseWriter, r *http.Request) {
	h.serveRole(w, r, models.RoleUnitLeader)
}

func (h *Handler) serveRole(w http.ResponseWriter, r *http.Request, role string) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list unit "+role)
	defer cancel()
	_, unit, err := h.load(ctx, r, authz.ActionRead)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ms, err := h.Memberships.ListByUnit(ctx, unit.ID, role)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := h.Users.Many(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	items := make([]memberRow, 0, len(ms))
	for _, m := range ms {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		items = append(items, memberRow{
			MembershipID: m.ID,
			Role:         m.Role,
			Duties:       m.Duties,
			UserID:       u.ID,
			FirstName:    u.FirstName,
			Surname:      u.Surname,
			Phone:        u.Phone,
			Email:        u.Email,
			Avatar:       u.Profile.Avatar,
		})
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": items})
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// HandleAddMember places a user in the unit as Member (default) or
// UnitLeader. Appointing a leader takes an admin of the unit's church or
// ministry; a unit has at most one.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add unit member")
	defer cancel()
	caller, unit, err := h.load(ctx, r, authz.ActionManage)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in addMemberRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := shared.RequiredID(in.UserID, "user_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.RoleMember
	}
	switch role {
	case models.RoleMember:
	case models.RoleUnitLeader:
		if err := adminOf(caller, unit.ChurchID, unit.MinistryName); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	default:
		respond.Error(w, h.Log, apierr.Validation("role must be Member or UnitLeader"))
		return
	}

	target, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, h.Log, apierr.NotFound("User not found"))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	m, err := h.Memberships.Add(ctx, models.Membership{UserID: userID, Role: role, UnitID: &unit.ID})
	switch {
	case errors.Is(err, membershipstore.ErrUnitHasLeader):
		respond.Error(w, h.Log, apierr.Conflict(err.Error()))
		return
	case errors.Is(err, membershipstore.ErrDuplicateRole):
		respond.Error(w, h.Log, apierr.Conflict("User already has "+role+" role for this unit"))
		return
	case err != nil:
		respond.Error(w, h.Log, err)
		return
	}
	if unit.ChurchID != nil && target.ChurchID == nil {
		if err := h.Users.SetChurch(ctx, userID, *unit.ChurchID); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventRoleAssigned, caller.ID, &userID, unit.ChurchID,
			map[string]string{"role": role, "unit_id": unit.ID.Hex()})
	}
	respond.Item(w, http.StatusCreated, m)
}

// HandleRemoveMember drops every role the user holds in the unit.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove unit member")
	defer cancel()
	caller, unit, err := h.load(ctx, r, authz.ActionManage)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := shared.IDParam(r, "userId")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	n, err := h.Memberships.RemoveFromUnit(ctx, userID, unit.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if n == 0 {
		respond.Error(w, h.Log, apierr.NotFound("User is not in this unit"))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventRoleRemoved, caller.ID, &userID, unit.ChurchID,
			map[string]string{"unit_id": unit.ID.Hex()})
	}
	respond.OK(w)
}

type dutyRequest struct {
	UserID string `json:"user_id"`
	Duty   string `json:"duty"`
}

func (h *Handler) HandleAddDuty(w http.ResponseWriter, r *http.Request) {
	h.setDuty(w, r, true)
}

func (h *Handler) HandleRemoveDuty(w http.ResponseWriter, r *http.Request) {
	h.setDuty(w, r, false)
}

// setDuty adds or removes a duty on the user's roles in the unit.
func (h *Handler) setDuty(w http.ResponseWriter, r *http.Request, add bool) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set duty")
	defer cancel()
	_, unit, err := h.load(ctx, r, authz.ActionManage)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in dutyRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := shared.RequiredID(in.UserID, "user_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	duty := strings.TrimSpace(in.Duty)
	if duty == "" {
		respond.Error(w, h.Log, apierr.Validation("duty required"))
		return
	}
	err = h.Memberships.SetDuty(ctx, userID, unit.ID, duty, add)
	if errors.Is(err, membershipstore.ErrNotFound) {
		respond.Error(w, h.Log, apierr.NotFound("User is not in this unit"))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w)
}
