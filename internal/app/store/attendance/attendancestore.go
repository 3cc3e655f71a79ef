// internal/app/store/attendance/attendancestore.go
package attendancestore

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

const Collection = "attendance"

var (
	ErrNegativeCount = errors.New("counts must not be negative")
	ErrServiceType   = errors.New("service_type required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create records a headcount. Total is always male + female.
func (s *Store) Create(ctx context.Context, a models.Attendance) (models.Attendance, error) {
	if a.MaleCount < 0 || a.FemaleCount < 0 {
		return models.Attendance{}, ErrNegativeCount
	}
	a.ServiceType = strings.TrimSpace(a.ServiceType)
	if a.ServiceType == "" {
		return models.Attendance{}, ErrServiceType
	}
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Total = a.MaleCount + a.FemaleCount
	if a.Date.IsZero() {
		a.Date = now
	}
	a.CreatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Attendance{}, err
	}
	return a, nil
}

// List returns attendance in the scope predicate between from and to,
// newest first.
func (s *Store) List(ctx context.Context, scope bson.M, from, to *time.Time, p paging.Params) ([]models.Attendance, int64, error) {
	q := bson.M{}
	for k, v := range scope {
		q[k] = v
	}
	if from != nil || to != nil {
		rng := bson.M{}
		if from != nil {
			rng["$gte"] = from.UTC()
		}
		if to != nil {
			rng["$lte"] = to.UTC()
		}
		q["date"] = rng
	}
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Attendance{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) DeleteByUnit(ctx context.Context, unit primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"unit_id": unit})
	return err
}

// Count returns the number of headcounts matching scope.
func (s *Store) Count(ctx context.Context, scope bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, scope)
}
