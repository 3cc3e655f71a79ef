package shared

import (
	"context"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/scope"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ScopedList authorizes a list request. It reads scope=mine|unit|auto and
// an optional unitId; the unit is honored only when the caller may read it.
func ScopedList(ctx context.Context, r *http.Request, units UnitGetter) (*models.User, authz.ListScope, scope.Scope, error) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		return nil, authz.ListScope{}, resolved, err
	}
	mode, ok := authz.ParseMode(query.Get(r, "scope"))
	if !ok {
		return nil, authz.ListScope{}, resolved, apierr.Validation("scope must be mine, unit or auto")
	}

	var requested *authz.UnitRef
	unitID, err := OptionalID(query.Get(r, "unitId"), "unitId")
	if err != nil {
		return nil, authz.ListScope{}, resolved, err
	}
	if unitID != nil {
		_, ref, err := LoadUnit(ctx, units, *unitID)
		if err != nil {
			return nil, authz.ListScope{}, resolved, err
		}
		requested = ref
	}

	ls, d := authz.ListScopeFor(u, mode, requested, resolved)
	if err := d.Err(); err != nil {
		return nil, authz.ListScope{}, resolved, err
	}
	return u, ls, resolved, nil
}
