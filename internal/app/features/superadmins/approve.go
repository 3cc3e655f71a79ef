package superadmins

import (
	"net/http"

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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServePending lists SuperAdmin registrations awaiting approval.
func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "pending superadmins")
	defer cancel()

	pending := true
	p := paging.Parse(r)
	items, total, err := h.Users.List(ctx, userstore.Filter{SuperAdminPending: &pending}, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

type approveRequest struct {
	UserID string `json:"user_id"`
}

// HandleApprove approves a pending SuperAdmin.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in approveRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	id, err := shared.RequiredID(in.UserID, "user_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "approve superadmin")
	defer cancel()
	target, err := h.Fetcher.FetchWithRoles(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, apierr.NotFound("User not found"))
		return
	}
	if !target.SuperAdminPending {
		respond.Error(w, h.Log, apierr.Conflict("User is not a pending SuperAdmin"))
		return
	}
	if err := authz.AuthorizeApproval(caller, target).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Users.Approve(ctx, id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	shared.Notify(h.Push, push.Notification{
		Title:   "Account Approved",
		Body:    "Your SuperAdmin account has been approved.",
		Data:    map[string]string{"type": "account_approved"},
		UserIDs: []primitive.ObjectID{id},
	})
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventSuperAdminApprove, caller.ID, &id, target.ChurchID, nil)
	}
	respond.OK(w)
}
