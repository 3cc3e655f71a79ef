package finance

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeCategories lists a unit's categories: GET ?unitId=&type=.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	u, _, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	unitID, err := shared.RequiredID(query.Get(r, "unitId"), "unitId")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	typ := query.Get(r, "type")
	if typ != "" && !models.ValidFinanceType(typ) {
		respond.Error(w, h.Log, apierr.Validation("type must be income or expense"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list finance categories")
	defer cancel()
	_, ref, err := shared.LoadUnit(ctx, h.Units, unitID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := authz.Require(u, authz.ActionRead, gate(ref)); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	cats, err := h.Finance.ListCategories(ctx, unitID, typ)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": cats})
}

type categoryRequest struct {
	UnitID string `json:"unit_id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in categoryRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create finance category")
	defer cancel()
	unit, ref, err := shared.TargetUnit(ctx, h.Units, in.UnitID, resolved.UnitID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := authz.Require(u, authz.ActionCreate, gate(ref)); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	c, err := h.Finance.CreateCategory(ctx, models.FinanceCategory{
		UnitID:    unit.ID,
		Type:      strings.TrimSpace(in.Type),
		Name:      in.Name,
		CreatedBy: u.ID,
	})
	if err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	respond.Item(w, http.StatusCreated, c)
}

// loadCategory authorizes a category write against the category's unit.
// Any duty holder of the unit may manage its categories.
func (h *Handler) loadCategory(ctx context.Context, r *http.Request) (*models.FinanceCategory, error) {
	u, _, err := authz.Caller(r)
	if err != nil {
		return nil, err
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, err
	}
	c, err := h.Finance.GetCategory(ctx, id)
	if err != nil {
		return nil, financeErr(err)
	}
	_, ref, err := shared.LoadUnit(ctx, h.Units, c.UnitID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(u, authz.ActionCreate, gate(ref)); err != nil {
		return nil, err
	}
	return c, nil
}

func (h *Handler) HandleRenameCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rename finance category")
	defer cancel()
	c, err := h.loadCategory(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in categoryRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Finance.RenameCategory(ctx, c.ID, in.Name); err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	c, err = h.Finance.GetCategory(ctx, c.ID)
	if err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	respond.Item(w, http.StatusOK, c)
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete finance category")
	defer cancel()
	c, err := h.loadCategory(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Finance.DeleteCategory(ctx, c.ID); err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	respond.OK(w)
}
