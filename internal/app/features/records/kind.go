package records

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/policy/recordpolicy"
	recordstore "github.com/dalemusser/churchhub/internal/app/store/records"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/scope"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// createRule runs after the target unit is known and authorized.
type createRule func(unit *models.Unit, resolved scope.Scope) error

// activeUnitRule: invites need a caller acting within a unit.
func activeUnitRule(_ *models.Unit, resolved scope.Scope) error {
	if resolved.UnitID == nil {
		return apierr.Validation("Active role unit required to create invite")
	}
	return nil
}

// musicUnitRule: only music units release songs.
func musicUnitRule(unit *models.Unit, _ scope.Scope) error {
	if !unit.MusicUnit {
		return apierr.Validation("Songs can only be added to a music unit")
	}
	return nil
}

type kind[T any, P recordstore.Record[T]] struct {
	store  *recordstore.Store[T, P]
	units  shared.UnitGetter
	lister recordpolicy.UnitIDLister
	search []string
	rule   createRule
	log    *zap.Logger
}

func newKind[T any, P recordstore.Record[T]](h *Handler, store *recordstore.Store[T, P], search ...string) *kind[T, P] {
	return &kind[T, P]{store: store, units: h.Units, lister: h.Units.Store(), search: search, log: h.Log}
}

func (k *kind[T, P]) withRule(rule createRule) *kind[T, P] {
	k.rule = rule
	return k
}

// ServeList lists records for ?scope=mine|unit|auto&unitId=&year=&q=.
func (k *kind[T, P]) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), k.log, "list records")
	defer cancel()

	_, ls, _, err := shared.ScopedList(ctx, r, k.units)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	q, err := recordpolicy.Filter(ctx, k.lister, ls, recordpolicy.Records)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	if y := query.Get(r, "year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1900 {
			respond.Error(w, k.log, apierr.Validation("year must be a four-digit year"))
			return
		}
		k.store.YearFilter(q, year)
	}
	if s := strings.TrimSpace(query.Get(r, "q")); s != "" && len(k.search) > 0 {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		or := make(bson.A, 0, len(k.search))
		for _, f := range k.search {
			or = append(or, bson.M{f: rx})
		}
		q["$or"] = or
	}

	p := paging.Parse(r)
	items, total, err := k.store.List(ctx, q, p)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// HandleCreate stores a record in the requested unit, or in the caller's
// resolved unit when the body names none.
func (k *kind[T, P]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	rec := P(new(T))
	if err := shared.Decode(w, r, rec); err != nil {
		respond.Error(w, k.log, err)
		return
	}
	if err := rec.Validate(); err != nil {
		respond.Error(w, k.log, apierr.Validation(err.Error()))
		return
	}

	meta := rec.Meta()
	unitID := meta.UnitID
	if unitID.IsZero() {
		if resolved.UnitID == nil {
			respond.Error(w, k.log, apierr.Validation("unit_id required"))
			return
		}
		unitID = *resolved.UnitID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), k.log, "create record")
	defer cancel()
	unit, ref, err := shared.LoadUnit(ctx, k.units, unitID)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	if err := authz.Require(u, authz.ActionCreate, authz.Resource{Unit: ref}); err != nil {
		respond.Error(w, k.log, err)
		return
	}
	if k.rule != nil {
		if err := k.rule(unit, resolved); err != nil {
			respond.Error(w, k.log, err)
			return
		}
	}

	meta.UnitID, meta.AddedBy = unit.ID, u.ID
	if err := k.store.Create(ctx, rec); err != nil {
		respond.Error(w, k.log, err)
		return
	}
	respond.Item(w, http.StatusCreated, rec)
}

// load fetches the {id} record and authorizes action against its stored
// unit and owner.
func (k *kind[T, P]) load(ctx context.Context, r *http.Request, action authz.Action) (P, error) {
	u, _, err := authz.Caller(r)
	if err != nil {
		return nil, err
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, err
	}
	rec, err := k.store.Get(ctx, id)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, apierr.NotFound(err.Error())
	}
	if err != nil {
		return nil, err
	}
	meta := rec.Meta()
	ref, err := shared.StoredUnitRef(ctx, k.units, meta.UnitID)
	if err != nil {
		return nil, err
	}
	res := authz.Resource{Unit: ref, AddedBy: &meta.AddedBy, ExplicitUnit: true}
	if err := authz.Require(u, action, res); err != nil {
		return nil, err
	}
	return rec, nil
}

func (k *kind[T, P]) ServeOne(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), k.log, "get record")
	defer cancel()
	rec, err := k.load(ctx, r, authz.ActionRead)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	respond.Item(w, http.StatusOK, rec)
}

// HandleUpdate replaces the editable fields. Unit and owner never change.
func (k *kind[T, P]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), k.log, "update record")
	defer cancel()
	stored, err := k.load(ctx, r, authz.ActionUpdate)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	rec := P(new(T))
	if err := shared.Decode(w, r, rec); err != nil {
		respond.Error(w, k.log, err)
		return
	}
	if err := rec.Validate(); err != nil {
		respond.Error(w, k.log, apierr.Validation(err.Error()))
		return
	}
	if err := k.store.Replace(ctx, stored, rec); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			err = apierr.NotFound(err.Error())
		}
		respond.Error(w, k.log, err)
		return
	}
	respond.Item(w, http.StatusOK, rec)
}

func (k *kind[T, P]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), k.log, "delete record")
	defer cancel()
	rec, err := k.load(ctx, r, authz.ActionDelete)
	if err != nil {
		respond.Error(w, k.log, err)
		return
	}
	if err := k.store.Delete(ctx, rec.Meta().ID); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			err = apierr.NotFound(err.Error())
		}
		respond.Error(w, k.log, err)
		return
	}
	respond.OK(w)
}
