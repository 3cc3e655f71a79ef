package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList lists the users visible to the caller: everyone for a global
// SuperAdmin, the church for a church-bound one, the units of a ministry or
// led units for MinistryAdmins and leaders, otherwise only the caller.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list users")
	defer cancel()

	_, ls, _, err := shared.ScopedList(ctx, r, h.Units)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	f, err := h.filterFor(ctx, ls)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	f.Search = query.Get(r, "search")

	p := paging.Parse(r)
	items, total, err := h.Users.List(ctx, f, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// filterFor turns a list scope into a user filter. Unit scopes select the
// users holding a role in those units.
func (h *Handler) filterFor(ctx context.Context, ls authz.ListScope) (userstore.Filter, error) {
	switch {
	case ls.All:
		return userstore.Filter{}, nil
	case ls.UnitIDs != nil:
		ids, err := h.Memberships.UserIDsInUnits(ctx, ls.UnitIDs, "")
		return userstore.Filter{IDs: nonNil(ids)}, err
	case ls.ChurchID != nil && ls.Ministry == "":
		return userstore.Filter{ChurchID: ls.ChurchID}, nil
	case ls.ChurchID != nil:
		units, err := h.Units.Store().IDs(ctx, unitstore.Filter{ChurchID: ls.ChurchID, Ministry: ls.Ministry})
		if err != nil {
			return userstore.Filter{}, err
		}
		ids, err := h.Memberships.UserIDsInUnits(ctx, nonNil(units), "")
		return userstore.Filter{IDs: nonNil(ids)}, err
	case ls.AddedBy != nil:
		return userstore.Filter{IDs: []primitive.ObjectID{*ls.AddedBy}}, nil
	}
	return userstore.Filter{IDs: []primitive.ObjectID{}}, nil
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}

// ServeUser returns one user with roles. Callers see themselves, and
// administrators see users holding a role in a unit they manage.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get user")
	defer cancel()
	target, err := h.Fetcher.FetchWithRoles(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, apierr.NotFound("User not found"))
		return
	}
	if err := canView(caller, target); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusOK, target)
}

func canView(caller, target *models.User) error {
	if caller.ID == target.ID {
		return nil
	}
	d := authz.Authorize(caller, authz.ActionManage, authz.Resource{ChurchID: target.ChurchID})
	if d.Allowed {
		return nil
	}
	for _, ra := range target.Roles {
		if ra.UnitID == nil {
			continue
		}
		ref := &authz.UnitRef{ID: *ra.UnitID, ChurchID: ra.UnitChurchID, Ministry: ra.UnitMinistry}
		if authz.Authorize(caller, authz.ActionManage, authz.Resource{Unit: ref}).Allowed {
			return nil
		}
	}
	return d.Err()
}
