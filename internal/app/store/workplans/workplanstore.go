// internal/app/store/workplans/workplanstore.go
package workplanstore

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
	"go.uber.org/zap"
)

const Collection = "work_plans"

var (
	ErrNotFound     = errors.New("Work plan not found")
	ErrStale        = errors.New("Work plan was changed by another request; reload and retry")
	ErrBadDates     = errors.New("end_date must not be before start_date")
	errTitleMissing = errors.New("title required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a draft plan.
func (s *Store) Create(ctx context.Context, w models.WorkPlan) (models.WorkPlan, error) {
	w.Title = strings.TrimSpace(w.Title)
	if w.Title == "" {
		return models.WorkPlan{}, errTitleMissing
	}
	if !w.EndDate.IsZero() && w.EndDate.Before(w.StartDate) {
		return models.WorkPlan{}, ErrBadDates
	}
	now := time.Now().UTC()
	w.ID = primitive.NewObjectID()
	w.Status = models.PlanDraft
	w.Normalize()
	w.RecalculateProgress()
	w.VersionHistory = nil
	w.Record("created", &w.OwnerID, now, nil)
	w.CreatedAt, w.UpdatedAt = now, now
	w.Version = 1
	if _, err := s.c.InsertOne(ctx, w); err != nil {
		return models.WorkPlan{}, err
	}
	return w, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.WorkPlan, error) {
	var w models.WorkPlan
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Save writes back a plan mutated in memory. The write only lands if the
// stored version is still the one w was read at; otherwise ErrStale. The
// cached progress is recomputed first so every write keeps it current.
func (s *Store) Save(ctx context.Context, w *models.WorkPlan) error {
	read := w.Version
	w.RecalculateProgress()
	w.UpdatedAt = time.Now().UTC()
	w.Version = read + 1
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": w.ID, "version": versionMatch(read)}, w)
	if err != nil {
		w.Version = read
		return err
	}
	if res.MatchedCount == 0 {
		w.Version = read
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": w.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStale
	}
	return nil
}

// versionMatch matches documents written before versions were tracked as
// version zero.
func versionMatch(v int64) any {
	if v == 0 {
		return bson.M{"$in": bson.A{0, nil}}
	}
	return v
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

// List returns plans matching q, newest first.
func (s *Store) List(ctx context.Context, q bson.M, status string, p paging.Params) ([]models.WorkPlan, int64, error) {
	filter := bson.M{}
	for k, v := range q {
		filter[k] = v
	}
	if status != "" {
		filter["status"] = status
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions(paging.Newest))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.WorkPlan{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AutoStatus applies the end-date rule to every overdue draft or pending
// plan without a success rate and returns how many changed.
func (s *Store) AutoStatus(ctx context.Context, now time.Time, log *zap.Logger) (int, error) {
	q := bson.M{
		"end_date":     bson.M{"$lt": now},
		"success_rate": bson.M{"$exists": false},
		"status":       bson.M{"$in": bson.A{models.PlanDraft, models.PlanPending}},
	}
	cur, err := s.c.Find(ctx, q)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	changed := 0
	for cur.Next(ctx) {
		var w models.WorkPlan
		if err := cur.Decode(&w); err != nil {
			return changed, err
		}
		prev := w.Status
		if !w.ApplyAutoStatus(now) {
			continue
		}
		// conditional on the version we read so a concurrent write wins
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": w.ID, "status": prev, "version": versionMatch(w.Version)},
			bson.M{
				"$set": bson.M{
					"status":           w.Status,
					"rejection_reason": w.RejectionReason,
					"version_history":  w.VersionHistory,
					"updated_at":       now,
				},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return changed, err
		}
		if res.ModifiedCount > 0 {
			changed++
			if log != nil {
				log.Debug("work plan auto status", zap.String("id", w.ID.Hex()), zap.String("from", prev), zap.String("to", w.Status))
			}
		}
	}
	return changed, cur.Err()
}

// IsValidation reports whether err is an input error from Create.
func IsValidation(err error) bool {
	return errors.Is(err, errTitleMissing) || errors.Is(err, ErrBadDates)
}
