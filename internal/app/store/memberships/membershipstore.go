// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the single source of truth for who holds which role where.
const Collection = "memberships"

// LeaderIndex is the unique partial index that allows one UnitLeader per unit.
const LeaderIndex = "uniq_memberships_unit_leader"

var (
	// ErrUnitHasLeader is returned when a second leader is assigned to a unit.
	ErrUnitHasLeader = errors.New("Unit already has a leader")
	// ErrDuplicateRole is returned when the user already holds the same
	// role with the same scope.
	ErrDuplicateRole = errors.New("user already holds this role")
	ErrNotFound      = errors.New("membership not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Key is the canonical identity of a role assignment for one user.
func Key(role string, unit, church *primitive.ObjectID, ministry string) string {
	hex := func(id *primitive.ObjectID) string {
		if id == nil {
			return ""
		}
		return id.Hex()
	}
	return strings.Join([]string{role, hex(unit), hex(church), text.Fold(ministry)}, "|")
}

// Add validates and inserts a role assignment. Leader uniqueness and
// duplicate assignments are enforced by unique indexes, so concurrent
// callers cannot both succeed.
func (s *Store) Add(ctx context.Context, m models.Membership) (models.Membership, error) {
	m.MinistryName = strings.TrimSpace(m.MinistryName)
	if err := m.Assignment().Validate(); err != nil {
		return models.Membership{}, err
	}
	if m.Role != models.RoleMinistryAdmin {
		m.ChurchID, m.MinistryName = nil, ""
	}
	m.ID = primitive.NewObjectID()
	m.MinistryNameCI = text.Fold(m.MinistryName)
	m.Key = Key(m.Role, m.UnitID, m.ChurchID, m.MinistryName)
	if m.Duties == nil {
		m.Duties = []string{}
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		err = translateDup(err)
		// Re-adding a leader breaks both indexes; report the duplicate
		// whichever one the server named.
		if errors.Is(err, ErrUnitHasLeader) && s.holdsKey(ctx, m.UserID, m.Key) {
			err = ErrDuplicateRole
		}
		return models.Membership{}, err
	}
	return m, nil
}

func (s *Store) holdsKey(ctx context.Context, user primitive.ObjectID, key string) bool {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_id": user, "key": key})
	return err == nil && n > 0
}

func translateDup(err error) error {
	if !wafflemongo.IsDup(err) {
		return err
	}
	if strings.Contains(err.Error(), LeaderIndex) {
		return ErrUnitHasLeader
	}
	return ErrDuplicateRole
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Remove deletes one assignment.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveFromUnit drops every role the user holds in unit.
func (s *Store) RemoveFromUnit(ctx context.Context, userID, unitID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID, "unit_id": unitID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

func (s *Store) DeleteByUnit(ctx context.Context, unitID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"unit_id": unitID})
	return err
}

var insertionOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// ListByUser returns the user's assignments in insertion order.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// ListByUnit returns the unit's assignments, optionally for one role.
func (s *Store) ListByUnit(ctx context.Context, unitID primitive.ObjectID, role string) ([]models.Membership, error) {
	filter := bson.M{"unit_id": unitID}
	if role != "" {
		filter["role"] = role
	}
	return s.find(ctx, filter)
}

// ListByRole returns every assignment with the role, narrowed by extra.
func (s *Store) ListByRole(ctx context.Context, role string, extra bson.M) ([]models.Membership, error) {
	filter := bson.M{"role": role}
	for k, v := range extra {
		filter[k] = v
	}
	return s.find(ctx, filter)
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(insertionOrder))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserIDsInUnits returns the distinct users holding any role (or the given
// role) in the units.
func (s *Store) UserIDsInUnits(ctx context.Context, unitIDs []primitive.ObjectID, role string) ([]primitive.ObjectID, error) {
	filter := bson.M{"unit_id": bson.M{"$in": unitIDs}}
	if role != "" {
		filter["role"] = role
	}
	vals, err := s.c.Distinct(ctx, "user_id", filter)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// CountUsersInUnit counts distinct users holding a role in the unit.
func (s *Store) CountUsersInUnit(ctx context.Context, unitID primitive.ObjectID) (int, error) {
	ids, err := s.UserIDsInUnits(ctx, []primitive.ObjectID{unitID}, "")
	return len(ids), err
}

// LeaderOf returns the unit's leader assignment, or ErrNotFound.
func (s *Store) LeaderOf(ctx context.Context, unitID primitive.ObjectID) (*models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"unit_id": unitID, "role": models.RoleUnitLeader}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetDuty adds or removes a duty on every role the user holds in unit.
// It returns ErrNotFound when the user holds no role there.
func (s *Store) SetDuty(ctx context.Context, userID, unitID primitive.ObjectID, duty string, add bool) error {
	op := "$pull"
	if add {
		op = "$addToSet"
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "unit_id": unitID},
		bson.M{op: bson.M{"duties": duty}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UnitRoles groups the user ids of each role in a unit.
type UnitRoles struct {
	Leaders []primitive.ObjectID
	Members []primitive.ObjectID
}

// RolesInUnit splits a unit's users into leaders and members.
func (s *Store) RolesInUnit(ctx context.Context, unitID primitive.ObjectID) (UnitRoles, error) {
	ms, err := s.ListByUnit(ctx, unitID, "")
	if err != nil {
		return UnitRoles{}, err
	}
	var out UnitRoles
	for _, m := range ms {
		switch m.Role {
		case models.RoleUnitLeader:
			out.Leaders = append(out.Leaders, m.UserID)
		case models.RoleMember:
			out.Members = append(out.Members, m.UserID)
		}
	}
	return out, nil
}
