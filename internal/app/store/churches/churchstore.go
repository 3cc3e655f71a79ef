// internal/app/store/churches/churchstore.go
package churchstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "churches"

var (
	ErrNotFound          = errors.New("Church not found")
	ErrDuplicateChurch   = errors.New("Church already exists")
	ErrMinistryExists    = errors.New("Ministry already exists")
	ErrMinistryNotFound  = errors.New("Ministry not found")
	errNameRequired      = errors.New("name required")
	errMinistryNameEmpty = errors.New("ministry name required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a church under an organization. Slug and (organization,
// name) are both unique.
func (s *Store) Create(ctx context.Context, c models.Church) (models.Church, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Church{}, errNameRequired
	}
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	if c.Slug == "" {
		c.Slug = c.Name
	}
	c.Slug = normalize.Slug(c.Slug)
	now := time.Now().UTC()
	for i := range c.Ministries {
		c.Ministries[i].ID = primitive.NewObjectID()
		c.Ministries[i].Name = strings.TrimSpace(c.Ministries[i].Name)
		c.Ministries[i].NameCI = text.Fold(c.Ministries[i].Name)
		c.Ministries[i].CreatedAt = now
	}
	if c.Ministries == nil {
		c.Ministries = []models.Ministry{}
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Church{}, ErrDuplicateChurch
		}
		return models.Church{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Church, error) {
	var c models.Church
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns churches sorted by name. A nil ids slice lists all of them.
func (s *Store) List(ctx context.Context, ids []primitive.ObjectID) ([]models.Church, error) {
	q := bson.M{}
	if ids != nil {
		q["_id"] = bson.M{"$in": ids}
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Church
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of churches.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// Update holds the editable church fields.
type Update struct {
	Name    *string
	Slug    *string
	Address *string
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return errNameRequired
		}
		set["name"] = n
		set["name_ci"] = text.Fold(n)
	}
	if upd.Slug != nil {
		set["slug"] = normalize.Slug(*upd.Slug)
	}
	if upd.Address != nil {
		set["address"] = strings.TrimSpace(*upd.Address)
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateChurch
		}
		return err
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

// AddMinistry appends a ministry unless one with the same folded name is
// already present. The check and the push are one conditional update.
func (s *Store) AddMinistry(ctx context.Context, churchID primitive.ObjectID, name, description string) (models.Ministry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Ministry{}, errMinistryNameEmpty
	}
	m := models.Ministry{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": churchID, "ministries.name_ci": bson.M{"$ne": m.NameCI}},
		bson.M{"$push": bson.M{"ministries": m}, "$set": bson.M{"updated_at": m.CreatedAt}},
	)
	if err != nil {
		return models.Ministry{}, err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByID(ctx, churchID); err != nil {
			return models.Ministry{}, err
		}
		return models.Ministry{}, ErrMinistryExists
	}
	return m, nil
}

// RemoveMinistry pulls a ministry by id.
func (s *Store) RemoveMinistry(ctx context.Context, churchID, ministryID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": churchID, "ministries._id": ministryID},
		bson.M{"$pull": bson.M{"ministries": bson.M{"_id": ministryID}}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMinistryNotFound
	}
	return nil
}

// HasMinistry reports whether the church defines the ministry name.
func (s *Store) HasMinistry(ctx context.Context, churchID primitive.ObjectID, name string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": churchID, "ministries.name_ci": text.Fold(strings.TrimSpace(name))})
	return n > 0, err
}
