// internal/app/store/organizations/organizationstore.go
package organizationstore

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

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateOrganization = errors.New("Organization already exists")
	ErrNotFound              = errors.New("Organization not found")
	errNameRequired          = errors.New("name required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Create inserts an organization. The slug defaults to one derived from the
// name and must be unique.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return models.Organization{}, errNameRequired
	}
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	if org.Slug == "" {
		org.Slug = org.Name
	}
	org.Slug = normalize.Slug(org.Slug)
	org.CreatedAt = now
	org.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, org)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err == mongo.ErrNoDocuments {
		return models.Organization{}, ErrNotFound
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// List returns every organization sorted by name.
func (s *Store) List(ctx context.Context) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// First returns the oldest organization, used when a church is created
// without naming one.
func (s *Store) First(ctx context.Context) (models.Organization, error) {
	var org models.Organization
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := s.c.FindOne(ctx, bson.M{}, opts).Decode(&org)
	if err == mongo.ErrNoDocuments {
		return models.Organization{}, ErrNotFound
	}
	return org, err
}
