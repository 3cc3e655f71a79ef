// internal/app/store/testimonies/testimonystore.go
package testimonystore

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
)

const Collection = "testimonies"

var (
	ErrNotFound = errors.New("Testimony not found")
	errMissing  = errors.New("title and body required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create stores an unapproved testimony.
func (s *Store) Create(ctx context.Context, t models.Testimony) (models.Testimony, error) {
	t.Title = strings.TrimSpace(t.Title)
	t.Body = strings.TrimSpace(t.Body)
	if t.Title == "" || t.Body == "" {
		return models.Testimony{}, errMissing
	}
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Approved = false
	t.CreatedAt, t.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Testimony{}, err
	}
	return t, nil
}

func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"approved": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns approved testimonies, plus every testimony when all is set,
// plus the caller's own pending ones when mine is non-nil.
func (s *Store) List(ctx context.Context, all bool, mine *primitive.ObjectID, p paging.Params) ([]models.Testimony, int64, error) {
	q := bson.M{}
	if !all {
		or := bson.A{bson.M{"approved": true}}
		if mine != nil {
			or = append(or, bson.M{"user_id": *mine})
		}
		q["$or"] = or
	}
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(paging.Newest))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Testimony{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
