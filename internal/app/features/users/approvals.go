package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/app/system/txn"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxPending bounds how many unapproved accounts are examined per request.
const maxPending = 500

// pendingTypes maps the type query value to the role of the registration.
var pendingTypes = map[string]string{
	"member":        models.RoleMember,
	"leader":        models.RoleUnitLeader,
	"ministryadmin": models.RoleMinistryAdmin,
	"superadmin":    models.RoleSuperAdmin,
}

// ServePending lists unapproved accounts the caller may approve, optionally
// narrowed by registration type.
func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var role string
	if t := strings.ToLower(query.Get(r, "type")); t != "" {
		if role, ok = pendingTypes[t]; !ok {
			respond.Error(w, h.Log, apierr.Validation("type must be member, leader, ministryadmin or superadmin"))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "pending users")
	defer cancel()
	approved := false
	candidates, _, err := h.Users.List(ctx, userstore.Filter{Approved: &approved}, paging.Params{Page: 1, Limit: maxPending})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	out := make([]models.User, 0, len(candidates))
	for i := range candidates {
		u := &candidates[i]
		if err := h.Fetcher.Populate(ctx, u); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		if role != "" && !registeredAs(u, role) {
			continue
		}
		if authz.AuthorizeApproval(caller, u).Allowed {
			out = append(out, *u)
		}
	}
	p := paging.Parse(r)
	respond.List(w, pageOf(out, p), respond.Page{Total: int64(len(out)), Page: p.Page, Limit: p.Limit})
}

func registeredAs(u *models.User, role string) bool {
	if role == models.RoleSuperAdmin && u.SuperAdminPending {
		return true
	}
	return len(u.Roles) > 0 && u.Roles[0].Role == role
}

func pageOf[T any](items []T, p paging.Params) []T {
	start := int(p.Skip())
	if start >= len(items) {
		return nil
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

type targetRequest struct {
	UserID string `json:"user_id"`
}

// loadTarget reads the user_id body field and fetches that user with roles.
func (h *Handler) loadTarget(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error) {
	var in targetRequest
	if err := shared.Decode(w, r, &in); err != nil {
		return nil, err
	}
	id, err := shared.RequiredID(in.UserID, "user_id")
	if err != nil {
		return nil, err
	}
	u, err := h.Fetcher.FetchWithRoles(ctx, id)
	if err != nil {
		return nil, apierr.NotFound("User not found")
	}
	return u, nil
}

// HandleApprove approves a pending account and notifies its owner.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "approve user")
	defer cancel()

	target, err := h.loadTarget(ctx, w, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := authz.AuthorizeApproval(caller, target).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Users.Approve(ctx, target.ID); err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}

	shared.Notify(h.Push, push.Notification{
		Title:   "Account Approved",
		Body:    "Your account has been approved. You can now sign in.",
		Data:    map[string]string{"type": "account_approved"},
		UserIDs: []primitive.ObjectID{target.ID},
	})
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventUserApproved, caller.ID, &target.ID, target.ChurchID, nil)
	}
	respond.OK(w)
}

// HandleReject deletes a pending account and its role assignments.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reject user")
	defer cancel()

	target, err := h.loadTarget(ctx, w, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if target.Approved {
		respond.Error(w, h.Log, apierr.Conflict("Only pending users can be rejected"))
		return
	}
	if err := authz.AuthorizeApproval(caller, target).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	err = txn.Run(ctx, h.Client, h.Log, func(tx context.Context) error {
		if err := h.Memberships.DeleteByUser(tx, target.ID); err != nil {
			return err
		}
		return h.Users.Delete(tx, target.ID)
	})
	if err != nil {
		respond.Error(w, h.Log, userErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventUserRejected, caller.ID, &target.ID, target.ChurchID, nil)
	}
	respond.OK(w)
}
