package userstore

import (
	"context"

	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipLister returns a user's role assignments in insertion order.
type MembershipLister interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error)
}

// UnitLookup resolves unit ids to units, typically through the unit cache.
type UnitLookup interface {
	Many(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Unit, error)
}

// Fetcher implements auth.UserFetcher. It loads the user document, then the
// memberships, and copies each unit's church and ministry onto unit-scoped
// entries so scope checks need no further reads.
type Fetcher struct {
	users       *Store
	memberships MembershipLister
	units       UnitLookup
}

func NewFetcher(users *Store, memberships MembershipLister, units UnitLookup) *Fetcher {
	return &Fetcher{users: users, memberships: memberships, units: units}
}

// FetchWithRoles implements auth.UserFetcher.
func (f *Fetcher) FetchWithRoles(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.users.GetByID(ctx, id)
	if err == ErrNotFound {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := f.Populate(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Populate fills u.Roles from memberships.
func (f *Fetcher) Populate(ctx context.Context, u *models.User) error {
	ms, err := f.memberships.ListByUser(ctx, u.ID)
	if err != nil {
		return err
	}
	var unitIDs []primitive.ObjectID
	for _, m := range ms {
		if m.UnitID != nil {
			unitIDs = append(unitIDs, *m.UnitID)
		}
	}
	units, err := f.units.Many(ctx, unitIDs)
	if err != nil {
		return err
	}

	u.Roles = make([]models.RoleAssignment, 0, len(ms))
	for _, m := range ms {
		ra := m.Assignment()
		if m.UnitID != nil {
			if unit, ok := units[*m.UnitID]; ok {
				ra.UnitChurchID = unit.ChurchID
				ra.UnitMinistry = unit.MinistryName
			}
		}
		u.Roles = append(u.Roles, ra)
	}
	return nil
}
