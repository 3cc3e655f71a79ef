// internal/app/policy/recordpolicy/recordpolicy.go
package recordpolicy

import (
	"context"

	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnitIDLister expands a church or ministry into its unit ids.
type UnitIDLister interface {
	IDs(ctx context.Context, f unitstore.Filter) ([]primitive.ObjectID, error)
}

// Fields names the unit and owner fields of a collection.
type Fields struct {
	Unit  string
	Owner string
}

// Records is the field layout of the unit-scoped record collections.
var Records = Fields{Unit: "unit_id", Owner: "added_by"}

// Filter turns a list scope into a Mongo predicate. Church and ministry
// scopes become unit_id ∈ (units of that church/ministry).
func Filter(ctx context.Context, units UnitIDLister, ls authz.ListScope, f Fields) (bson.M, error) {
	q := bson.M{}
	if ls.All {
		return q, nil
	}
	switch {
	case ls.UnitIDs != nil:
		q[f.Unit] = bson.M{"$in": ls.UnitIDs}
	case ls.ChurchID != nil:
		ids, err := units.IDs(ctx, unitstore.Filter{ChurchID: ls.ChurchID, Ministry: ls.Ministry})
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []primitive.ObjectID{}
		}
		q[f.Unit] = bson.M{"$in": ids}
	}
	if ls.AddedBy != nil && f.Owner != "" {
		q[f.Owner] = *ls.AddedBy
	}
	if len(q) == 0 {
		// nothing describes a visible set
		q["_id"] = bson.M{"$exists": false}
	}
	return q, nil
}
