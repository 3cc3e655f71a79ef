package units

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/app/system/txn"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	church, err := shared.OptionalID(query.Get(r, "church_id"), "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list public units")
	defer cancel()
	items, err := h.Units.Store().ListPublic(ctx, church)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if items == nil {
		items = []unitstore.Public{}
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": items})
}

// ServeList returns the units within the caller's widest scope: all units
// for global SuperAdmins, a church or ministry for admins, led units for
// leaders, and the units a member belongs to otherwise.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ls, _ := authz.ListScopeFor(u, authz.ModeAuto, nil, resolved)

	var f unitstore.Filter
	switch {
	case ls.All:
		f.All = true
	case ls.UnitIDs != nil:
		f.IDs = ls.UnitIDs
	case ls.ChurchID != nil:
		f.ChurchID, f.Ministry = ls.ChurchID, ls.Ministry
	default:
		f.IDs = u.UnitIDs()
		if f.IDs == nil {
			f.IDs = []primitive.ObjectID{}
		}
	}
	if f.Ministry == "" {
		f.Ministry = query.Get(r, "ministry")
	}
	f.Search = query.Get(r, "search")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list units")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Units.Store().List(ctx, f, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if items == nil {
		items = []models.Unit{}
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// load fetches the {id} unit and checks action against it. Reads count as
// an explicit request for the unit, so members may read their own.
func (h *Handler) load(ctx context.Context, r *http.Request, action authz.Action) (*models.User, *models.Unit, error) {
	u, _, err := authz.Caller(r)
	if err != nil {
		return nil, nil, err
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, nil, err
	}
	unit, ref, err := shared.LoadUnit(ctx, h.Units, id)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Require(u, action, authz.Resource{Unit: ref, ExplicitUnit: true}); err != nil {
		return nil, nil, err
	}
	return u, unit, nil
}

// adminOf checks the church and ministry level: SuperAdmins in scope and
// the ministry's admins. Leaders pass only for unit-level actions.
func adminOf(u *models.User, church *primitive.ObjectID, ministry string) error {
	return authz.Require(u, authz.ActionManage, authz.Resource{ChurchID: church, Ministry: ministry})
}

func (h *Handler) ServeUnit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get unit")
	defer cancel()
	_, unit, err := h.load(ctx, r, authz.ActionRead)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusOK, unit)
}

type createRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ChurchID     string `json:"church_id"`
	MinistryName string `json:"ministry_name"`
}

// HandleCreate adds a unit. The church defaults to the caller's resolved
// church; a named ministry must exist in it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in createRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respond.Error(w, h.Log, apierr.Validation("name required"))
		return
	}
	church, err := shared.OptionalID(in.ChurchID, "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if church == nil {
		church = resolved.ChurchID
	}
	if err := adminOf(u, church, in.MinistryName); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create unit")
	defer cancel()
	if err := h.checkMinistry(ctx, church, in.MinistryName); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	created, err := h.Units.Store().Create(ctx, models.Unit{
		Name:         in.Name,
		Description:  strings.TrimSpace(in.Description),
		ChurchID:     church,
		MinistryName: in.MinistryName,
		CreatedBy:    &u.ID,
	})
	if err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventUnitCreated, u.ID, &created.ID, church, map[string]string{"name": created.Name})
	}
	respond.Item(w, http.StatusCreated, created)
}

func (h *Handler) checkMinistry(ctx context.Context, church *primitive.ObjectID, ministry string) error {
	if strings.TrimSpace(ministry) == "" {
		return nil
	}
	if church == nil {
		return apierr.Validation("church_id required for a ministry unit")
	}
	ok, err := h.Churches.HasMinistry(ctx, *church, ministry)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.Validation("Ministry not found in church")
	}
	return nil
}

type updateRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	ChurchID     *string `json:"church_id"`
	MinistryName *string `json:"ministry_name"`
}

// HandleUpdate edits a unit's description fields. Leaders may rename their
// unit; moving it to another church or ministry needs an admin of both the
// current and the new placement.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update unit")
	defer cancel()
	u, unit, err := h.load(ctx, r, authz.ActionManage)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in updateRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	upd := unitstore.Update{Name: in.Name, Description: in.Description, MinistryName: in.MinistryName}
	if in.ChurchID != nil {
		if upd.ChurchID, err = shared.OptionalID(*in.ChurchID, "church_id"); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	if upd.ChurchID != nil || upd.MinistryName != nil {
		church, ministry := unit.ChurchID, unit.MinistryName
		if upd.ChurchID != nil {
			church = upd.ChurchID
		}
		if upd.MinistryName != nil {
			ministry = *upd.MinistryName
		}
		if err := adminOf(u, unit.ChurchID, unit.MinistryName); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		if err := adminOf(u, church, ministry); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		if err := h.checkMinistry(ctx, church, ministry); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}

	if err := h.Units.Store().Update(ctx, unit.ID, upd); err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	h.Units.Invalidate(unit.ID)
	updated, err := h.Units.Get(ctx, unit.ID)
	if err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventUnitUpdated, u.ID, &unit.ID, updated.ChurchID, nil)
	}
	respond.Item(w, http.StatusOK, updated)
}

// HandleDelete removes a unit together with its memberships.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete unit")
	defer cancel()
	u, unit, err := h.load(ctx, r, authz.ActionRead)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := adminOf(u, unit.ChurchID, unit.MinistryName); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	err = txn.Run(ctx, h.Client, h.Log, func(tx context.Context) error {
		if err := h.Memberships.DeleteByUnit(tx, unit.ID); err != nil {
			return err
		}
		return h.Units.Store().Delete(tx, unit.ID)
	})
	h.Units.Invalidate(unit.ID)
	if err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventUnitDeleted, u.ID, &unit.ID, unit.ChurchID, map[string]string{"name": unit.Name})
	}
	respond.OK(w)
}

func unitErr(err error) error {
	switch {
	case errors.Is(err, unitstore.ErrNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, unitstore.ErrDuplicateName), errors.Is(err, unitstore.ErrAttendanceUnitExists):
		return apierr.Conflict(err.Error())
	case unitstore.IsValidation(err):
		return apierr.Validation(err.Error())
	}
	return err
}
