// internal/app/store/announcements/announcementstore.go
package announcementstore

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

const Collection = "announcements"

var (
	ErrNotFound     = errors.New("Announcement not found")
	errTitleMissing = errors.New("title required")
	errBodyMissing  = errors.New("body required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create stores an announcement. Body must already be sanitized.
func (s *Store) Create(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return models.Announcement{}, errTitleMissing
	}
	if strings.TrimSpace(a.Body) == "" {
		return models.Announcement{}, errBodyMissing
	}
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.CreatedAt, a.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	var a models.Announcement
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, title, body *string) (*models.Announcement, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, errTitleMissing
		}
		set["title"] = t
	}
	if body != nil {
		if strings.TrimSpace(*body) == "" {
			return nil, errBodyMissing
		}
		set["body"] = *body
	}
	return s.apply(ctx, id, set)
}

func (s *Store) SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) (*models.Announcement, error) {
	return s.apply(ctx, id, bson.M{"pinned": pinned, "updated_at": time.Now().UTC()})
}

func (s *Store) apply(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Announcement, error) {
	var a models.Announcement
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
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

// List returns announcements for the given churches plus global ones,
// pinned first then newest. A nil churches slice lists everything.
func (s *Store) List(ctx context.Context, churches []primitive.ObjectID, p paging.Params) ([]models.Announcement, int64, error) {
	q := bson.M{}
	if churches != nil {
		q["$or"] = bson.A{
			bson.M{"church_id": bson.M{"$in": churches}},
			bson.M{"church_id": bson.M{"$exists": false}},
		}
	}
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	sort := bson.D{{Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	cur, err := s.c.Find(ctx, q, p.FindOptions(sort))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Announcement{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// IsValidation reports whether err is an input error from Create or Update.
func IsValidation(err error) bool {
	return errors.Is(err, errTitleMissing) || errors.Is(err, errBodyMissing)
}
