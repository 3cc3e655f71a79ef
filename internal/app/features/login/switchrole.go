package login

import (
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
)

type switchRoleRequest struct {
	Role string `json:"role"`
}

// HandleSwitchRole changes the active role to another role the user holds
// and returns a token for it.
func (h *Handler) HandleSwitchRole(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in switchRoleRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		respond.Error(w, h.Log, apierr.Validation("role required"))
		return
	}
	if !u.HasRole(role) {
		respond.Error(w, h.Log, apierr.Validation("User does not have this role"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "switch role")
	defer cancel()
	if err := h.Users.SetActiveRole(ctx, u.ID, role); err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}
	token, err := h.Tokens.IssueSession(u.ID, role)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Audit != nil {
		h.Audit.Auth(ctx, r, audit.EventRoleSwitched, &u.ID, true, "", map[string]string{"role": role})
	}
	respond.Fields(w, http.StatusOK, map[string]any{"active_role": role, "token": token})
}
