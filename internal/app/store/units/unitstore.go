// internal/app/store/units/unitstore.go
package unitstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "units"

// AttendanceIndex allows one attendance-taking unit per church.
const AttendanceIndex = "uniq_units_attendance_per_church"

var (
	ErrNotFound             = errors.New("Unit not found")
	ErrDuplicateName        = errors.New("Unit name already exists")
	ErrAttendanceUnitExists = errors.New("Church already has an attendance-taking unit")
	errNameRequired         = errors.New("name required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func translateDup(err error) error {
	if !wafflemongo.IsDup(err) {
		return err
	}
	if strings.Contains(err.Error(), AttendanceIndex) {
		return ErrAttendanceUnitExists
	}
	return ErrDuplicateName
}

// Create inserts a unit. Name and ministry are trimmed and folded copies
// stored for case-insensitive lookups.
func (s *Store) Create(ctx context.Context, u models.Unit) (models.Unit, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return models.Unit{}, errNameRequired
	}
	u.ID = primitive.NewObjectID()
	u.NameCI = text.Fold(u.Name)
	u.MinistryName = strings.TrimSpace(u.MinistryName)
	u.MinistryNameCI = text.Fold(u.MinistryName)
	if u.EnabledReportCards == nil {
		u.EnabledReportCards = []string{}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.Unit{}, translateDup(err)
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Unit, error) {
	var u models.Unit
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Many loads units by id, keyed by id. Unknown ids are absent.
func (s *Store) Many(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Unit, error) {
	out := make(map[primitive.ObjectID]models.Unit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.Unit
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// Update holds the mutable descriptive fields of a unit.
type Update struct {
	Name         *string
	Description  *string
	ChurchID     *primitive.ObjectID
	MinistryName *string
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return errNameRequired
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.ChurchID != nil {
		set["church_id"] = *upd.ChurchID
	}
	if upd.MinistryName != nil {
		m := strings.TrimSpace(*upd.MinistryName)
		set["ministry_name"] = m
		set["ministry_name_ci"] = text.Fold(m)
	}
	return s.set(ctx, id, set)
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translateDup(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAttendanceTaking flags a unit. The partial unique index rejects a
// second attendance-taking unit in the same church.
func (s *Store) SetAttendanceTaking(ctx context.Context, id primitive.ObjectID, on bool) error {
	return s.set(ctx, id, bson.M{"attendance_taking": on, "updated_at": time.Now().UTC()})
}

func (s *Store) SetMusic(ctx context.Context, id primitive.ObjectID, on bool) error {
	return s.set(ctx, id, bson.M{"music_unit": on, "updated_at": time.Now().UTC()})
}

func (s *Store) SetReportCards(ctx context.Context, id primitive.ObjectID, cards []string) error {
	if cards == nil {
		cards = []string{}
	}
	return s.set(ctx, id, bson.M{"enabled_report_cards": cards, "updated_at": time.Now().UTC()})
}

// Filter narrows List and IDs. Zero fields are ignored.
type Filter struct {
	IDs      []primitive.ObjectID
	ChurchID *primitive.ObjectID
	Ministry string
	Search   string
	All      bool
}

func (f Filter) bson() bson.M {
	q := bson.M{}
	if !f.All && f.IDs != nil {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	if f.ChurchID != nil {
		q["church_id"] = *f.ChurchID
	}
	if f.Ministry != "" {
		q["ministry_name_ci"] = text.Fold(f.Ministry)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(s))}
	}
	return q
}

// List returns one page of units sorted by name, with the total count.
func (s *Store) List(ctx context.Context, f Filter, p paging.Params) ([]models.Unit, int64, error) {
	q := f.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var out []models.Unit
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// IDs returns the ids of every unit matching f. Used to expand church and
// ministry scopes into unit predicates.
func (s *Store) IDs(ctx context.Context, f Filter) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, f.bson(), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.ID)
	}
	return out, cur.Err()
}

// Count returns the number of units matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.bson())
}

// CountInChurch counts units attached to a church.
func (s *Store) CountInChurch(ctx context.Context, church primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"church_id": church})
}

// Public is the minimal unit view offered to signed-out registrants.
type Public struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	MinistryName string             `bson:"ministry_name,omitempty" json:"ministry_name,omitempty"`
}

func (s *Store) ListPublic(ctx context.Context, church *primitive.ObjectID) ([]Public, error) {
	q := bson.M{}
	if church != nil {
		q["church_id"] = *church
	}
	opts := options.Find().
		SetProjection(bson.M{"name": 1, "ministry_name": 1}).
		SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Public
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsValidation reports whether err is an input error from Create or Update.
func IsValidation(err error) bool {
	return errors.Is(err, errNameRequired)
}
