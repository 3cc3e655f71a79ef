// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "events"

var (
	ErrNotFound     = errors.New("Event not found")
	errTitleMissing = errors.New("title required")
	errDateMissing  = errors.New("date required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return models.Event{}, errTitleMissing
	}
	if e.Date.IsZero() {
		return models.Event{}, errDateMissing
	}
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt, e.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Update holds the editable event fields. Scope fields are not editable.
type Update struct {
	Title       *string
	Venue       *string
	Description *string
	Date        *time.Time
	EventType   *string
	Reminder    *bool
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Event, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, errTitleMissing
		}
		set["title"] = t
	}
	if upd.Venue != nil {
		set["venue"] = strings.TrimSpace(*upd.Venue)
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Date != nil {
		set["date"] = upd.Date.UTC()
	}
	if upd.EventType != nil {
		set["event_type"] = strings.TrimSpace(*upd.EventType)
	}
	if upd.Reminder != nil {
		set["reminder"] = *upd.Reminder
	}
	var e models.Event
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
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

// Visible builds the predicate for events a caller can see: church-wide
// events of their churches plus events of their units. A nil church list
// with all set means every event.
func Visible(all bool, churches, units []primitive.ObjectID) bson.M {
	if all {
		return bson.M{}
	}
	or := bson.A{}
	if len(churches) > 0 {
		or = append(or, bson.M{"church_id": bson.M{"$in": churches}, "unit_id": bson.M{"$exists": false}})
	}
	if len(units) > 0 {
		or = append(or, bson.M{"unit_id": bson.M{"$in": units}})
	}
	// events with no scope at all are global
	or = append(or, bson.M{"church_id": bson.M{"$exists": false}, "unit_id": bson.M{"$exists": false}})
	return bson.M{"$or": or}
}

// List returns events matching q, soonest first.
func (s *Store) List(ctx context.Context, q bson.M, p paging.Params) ([]models.Event, int64, error) {
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Upcoming returns the next n events from now within q.
func (s *Store) Upcoming(ctx context.Context, q bson.M, n int64) ([]models.Event, error) {
	filter := bson.M{"date": bson.M{"$gte": time.Now().UTC()}}
	for k, v := range q {
		filter[k] = v
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetLimit(n)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsValidation reports whether err is an input error from Create or Update.
func IsValidation(err error) bool {
	return errors.Is(err, errTitleMissing) || errors.Is(err, errDateMissing)
}
