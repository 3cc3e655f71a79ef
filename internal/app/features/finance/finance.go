package finance

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/policy/recordpolicy"
	financestore "github.com/dalemusser/churchhub/internal/app/store/finance"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var financeFields = recordpolicy.Fields{Unit: "unit_id", Owner: "recorded_by"}

func gate(ref *authz.UnitRef) authz.Resource {
	return authz.Resource{Unit: ref, Duty: models.DutyFinancialSecretary, ExplicitUnit: true}
}

// scoped builds the list predicate and query narrowing for list and
// summary. An explicit unitId must pass the duty gate; a resolved unit
// scope keeps only the units where the caller passes it.
func (h *Handler) scoped(ctx context.Context, r *http.Request) (bson.M, financestore.Query, error) {
	u, ls, _, err := shared.ScopedList(ctx, r, h.Units)
	if err != nil {
		return nil, financestore.Query{}, err
	}
	if raw := query.Get(r, "unitId"); raw != "" {
		id, err := shared.RequiredID(raw, "unitId")
		if err != nil {
			return nil, financestore.Query{}, err
		}
		_, ref, err := shared.LoadUnit(ctx, h.Units, id)
		if err != nil {
			return nil, financestore.Query{}, err
		}
		if err := authz.Require(u, authz.ActionRead, gate(ref)); err != nil {
			return nil, financestore.Query{}, err
		}
	} else if len(ls.UnitIDs) > 0 {
		if ls, err = h.gatedUnits(ctx, u, ls); err != nil {
			return nil, financestore.Query{}, err
		}
	}
	q, err := recordpolicy.Filter(ctx, h.Units.Store(), ls, financeFields)
	if err != nil {
		return nil, financestore.Query{}, err
	}
	fq := financestore.Query{Type: query.Get(r, "type")}
	if fq.Type != "" && !models.ValidFinanceType(fq.Type) {
		return nil, financestore.Query{}, apierr.Validation(financestore.ErrBadType.Error())
	}
	if fq.From, fq.To, err = shared.DateRange(r); err != nil {
		return nil, financestore.Query{}, err
	}
	return q, fq, nil
}

// gatedUnits drops the units of ls the caller may not read ledgers in.
// With none left the caller sees only lines they recorded.
func (h *Handler) gatedUnits(ctx context.Context, u *models.User, ls authz.ListScope) (authz.ListScope, error) {
	units, err := h.Units.Many(ctx, ls.UnitIDs)
	if err != nil {
		return authz.ListScope{}, err
	}
	var kept []primitive.ObjectID
	for _, id := range ls.UnitIDs {
		unit, ok := units[id]
		if !ok {
			continue
		}
		if authz.Authorize(u, authz.ActionRead, gate(authz.UnitRefOf(&unit))).Allowed {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return authz.ListScope{AddedBy: &u.ID}, nil
	}
	ls.UnitIDs = kept
	return ls, nil
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list finance")
	defer cancel()
	q, fq, err := h.scoped(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	p := paging.Parse(r)
	items, total, err := h.Finance.List(ctx, q, fq, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// ServeSummary totals income and expense over the same scope as the list.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "finance summary")
	defer cancel()
	q, fq, err := h.scoped(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	sum, err := h.Finance.Summary(ctx, q, fq)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusOK, sum)
}

type financeRequest struct {
	UnitID      string   `json:"unit_id"`
	Type        string   `json:"type"`
	Amount      *float64 `json:"amount"`
	CategoryID  *string  `json:"category_id"`
	Source      *string  `json:"source"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in financeRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if in.Amount == nil {
		respond.Error(w, h.Log, apierr.Validation("amount required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create finance")
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

	f := models.Finance{UnitID: unit.ID, Type: strings.TrimSpace(in.Type), Amount: *in.Amount, RecordedBy: u.ID}
	if in.Source != nil {
		f.Source = *in.Source
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if in.Date != nil {
		if f.Date, err = shared.ParseTime(*in.Date); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	if in.CategoryID != nil {
		if f.CategoryID, err = h.category(ctx, *in.CategoryID, unit.ID, f.Type); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}

	created, err := h.Finance.Create(ctx, f)
	if err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	respond.Item(w, http.StatusCreated, created)
}

// category checks that a category belongs to the line's unit and type.
func (h *Handler) category(ctx context.Context, raw string, unit primitive.ObjectID, typ string) (*primitive.ObjectID, error) {
	id, err := shared.OptionalID(raw, "category_id")
	if err != nil || id == nil {
		return nil, err
	}
	c, err := h.Finance.GetCategory(ctx, *id)
	if err != nil {
		return nil, financeErr(err)
	}
	if c.UnitID != unit || c.Type != typ {
		return nil, apierr.Validation("Category does not match unit and type")
	}
	return id, nil
}

// load fetches the {id} line and authorizes action against its stored unit
// and recorder.
func (h *Handler) load(ctx context.Context, r *http.Request, action authz.Action) (*models.User, *models.Finance, error) {
	u, _, err := authz.Caller(r)
	if err != nil {
		return nil, nil, err
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, nil, err
	}
	f, err := h.Finance.Get(ctx, id)
	if err != nil {
		return nil, nil, financeErr(err)
	}
	_, ref, err := shared.LoadUnit(ctx, h.Units, f.UnitID)
	if err != nil {
		return nil, nil, err
	}
	res := gate(ref)
	res.AddedBy = &f.RecordedBy
	if err := authz.Require(u, action, res); err != nil {
		return nil, nil, err
	}
	return u, f, nil
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update finance")
	defer cancel()
	_, stored, err := h.load(ctx, r, authz.ActionUpdate)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in financeRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	upd := financestore.Update{Amount: in.Amount, Source: in.Source, Description: in.Description}
	typ := stored.Type
	if t := strings.TrimSpace(in.Type); t != "" {
		upd.Type, typ = &t, t
	}
	if in.Date != nil {
		d, err := shared.ParseTime(*in.Date)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		upd.Date = &d
	}
	if in.CategoryID != nil {
		if upd.CategoryID, err = h.category(ctx, *in.CategoryID, stored.UnitID, typ); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}

	updated, err := h.Finance.Update(ctx, stored.ID, upd)
	if err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	respond.Item(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete finance")
	defer cancel()
	_, stored, err := h.load(ctx, r, authz.ActionDelete)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Finance.Delete(ctx, stored.ID); err != nil {
		respond.Error(w, h.Log, financeErr(err))
		return
	}
	respond.OK(w)
}

func financeErr(err error) error {
	switch {
	case errors.Is(err, financestore.ErrNotFound), errors.Is(err, financestore.ErrCategoryNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, financestore.ErrCategoryExists):
		return apierr.Conflict(err.Error())
	case errors.Is(err, financestore.ErrBadType), errors.Is(err, financestore.ErrBadAmount),
		financestore.IsValidation(err):
		return apierr.Validation(err.Error())
	}
	return err
}
