// internal/app/store/records/recordstore.go
package recordstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("Record not found")

// Record is implemented by pointers to the unit-scoped record models.
type Record[T any] interface {
	*T
	Meta() *models.RecordMeta
	Validate() error
	DefaultDate(now time.Time)
	DomainDate() time.Time
}

// Store persists one kind of unit-scoped record. DateField names the
// domain date used for year filters and as the list sort key.
type Store[T any, P Record[T]] struct {
	c         *mongo.Collection
	DateField string
}

func New[T any, P Record[T]](db *mongo.Database, collection, dateField string) *Store[T, P] {
	return &Store[T, P]{c: db.Collection(collection), DateField: dateField}
}

func (s *Store[T, P]) Collection() *mongo.Collection { return s.c }

// Create validates rec, assigns id and timestamps, and inserts it. UnitID
// and AddedBy must already be set; a missing domain date becomes now.
func (s *Store[T, P]) Create(ctx context.Context, rec P) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m := rec.Meta()
	now := time.Now().UTC()
	rec.DefaultDate(now)
	m.ID = primitive.NewObjectID()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

func (s *Store[T, P]) Get(ctx context.Context, id primitive.ObjectID) (P, error) {
	var out T
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return P(&out), nil
}

// Replace overwrites the editable fields of stored with rec. The scope and
// ownership block is always taken from stored, and an omitted domain date
// keeps the stored one.
func (s *Store[T, P]) Replace(ctx context.Context, stored, rec P) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.DefaultDate(stored.DomainDate())
	rec.DefaultDate(now)
	old := stored.Meta()
	m := rec.Meta()
	m.ID, m.UnitID, m.AddedBy, m.CreatedAt = old.ID, old.UnitID, old.AddedBy, old.CreatedAt
	m.UpdatedAt = now
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": m.ID}, rec)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store[T, P]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// YearFilter adds a calendar-year bound on DateField to q. Zero leaves q
// unchanged.
func (s *Store[T, P]) YearFilter(q bson.M, year int) bson.M {
	if year <= 0 {
		return q
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	q[s.DateField] = bson.M{"$gte": from, "$lt": from.AddDate(1, 0, 0)}
	return q
}

// List returns one page matching q, newest first by DateField.
func (s *Store[T, P]) List(ctx context.Context, q bson.M, p paging.Params) ([]T, int64, error) {
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	sort := bson.D{{Key: s.DateField, Value: -1}, {Key: "_id", Value: -1}}
	cur, err := s.c.Find(ctx, q, p.FindOptions(sort))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store[T, P]) Count(ctx context.Context, q bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, q)
}

// DeleteByUnit removes every record of a unit.
func (s *Store[T, P]) DeleteByUnit(ctx context.Context, unit primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"unit_id": unit})
	return err
}

// Kinds is the set of record collections, keyed by route segment.
type Kinds struct {
	Souls            *Store[models.Soul, *models.Soul]
	Invites          *Store[models.Invite, *models.Invite]
	Achievements     *Store[models.Achievement, *models.Achievement]
	Assists          *Store[models.Assist, *models.Assist]
	Marriages        *Store[models.Marriage, *models.Marriage]
	RecoveredAddicts *Store[models.RecoveredAddict, *models.RecoveredAddict]
	Songs            *Store[models.Song, *models.Song]
}

// NewKinds opens every record collection.
func NewKinds(db *mongo.Database) Kinds {
	return Kinds{
		Souls:            New[models.Soul](db, "souls", "date_won"),
		Invites:          New[models.Invite](db, "invites", "invited_at"),
		Achievements:     New[models.Achievement](db, "achievements", "date"),
		Assists:          New[models.Assist](db, "assists", "assisted_on"),
		Marriages:        New[models.Marriage](db, "marriages", "date"),
		RecoveredAddicts: New[models.RecoveredAddict](db, "recovered_addicts", "date_of_recovery"),
		Songs:            New[models.Song](db, "songs", "release_date"),
	}
}

// Collections lists the record collection names.
var Collections = []string{"souls", "invites", "achievements", "assists", "marriages", "recovered_addicts", "songs"}
