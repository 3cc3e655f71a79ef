package superadmins

import (
	"net/http"
	"slices"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// administered returns the churches a SuperAdmin may switch between. Nil
// means all of them, which only multi SuperAdmins get.
func administered(u *models.User) []primitive.ObjectID {
	if u.Multi {
		return nil
	}
	ids := append([]primitive.ObjectID{}, u.ChurchIDs...)
	if u.ChurchID != nil && !slices.Contains(ids, *u.ChurchID) {
		ids = append(ids, *u.ChurchID)
	}
	return ids
}

// ServeChurches lists the churches the caller administers and marks the
// current one.
func (h *Handler) ServeChurches(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "superadmin churches")
	defer cancel()
	items, err := h.Churches.List(ctx, administered(u))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if items == nil {
		items = []models.Church{}
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": items, "current": u.ChurchID})
}

type switchChurchRequest struct {
	ChurchID string `json:"church_id"`
}

// HandleSwitchChurch changes the caller's primary church.
func (h *Handler) HandleSwitchChurch(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in switchChurchRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	id, err := shared.RequiredID(in.ChurchID, "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if allowed := administered(u); allowed != nil && !slices.Contains(allowed, id) {
		respond.Error(w, h.Log, apierr.Forbidden("Out of church scope"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "switch church")
	defer cancel()
	church, err := h.Churches.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, apierr.NotFound("Church not found"))
		return
	}
	if err := h.Users.SetChurch(ctx, u.ID, id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Users.AddChurch(ctx, u.ID, id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusOK, church)
}
