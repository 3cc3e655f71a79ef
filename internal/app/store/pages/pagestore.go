// internal/app/store/pages/pagestore.go
package pagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "legal_pages"

var (
	ErrNotFound = errors.New("Page not found")
	ErrBadType  = errors.New("type must be terms or privacy")
)

// ValidType reports whether t names a legal page.
func ValidType(t string) bool {
	return t == models.LegalTerms || t == models.LegalPrivacy
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Upsert replaces the page of p.Type. Section bodies must already be
// sanitized.
func (s *Store) Upsert(ctx context.Context, p models.LegalPage) (models.LegalPage, error) {
	if !ValidType(p.Type) {
		return models.LegalPage{}, ErrBadType
	}
	if p.Sections == nil {
		p.Sections = []models.LegalSection{}
	}
	p.LastUpdated = time.Now().UTC()
	var out models.LegalPage
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"type": p.Type},
		bson.M{
			"$set":         bson.M{"title": p.Title, "sections": p.Sections, "last_updated": p.LastUpdated},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return models.LegalPage{}, err
	}
	return out, nil
}

func (s *Store) GetByType(ctx context.Context, typ string) (*models.LegalPage, error) {
	if !ValidType(typ) {
		return nil, ErrBadType
	}
	var p models.LegalPage
	if err := s.c.FindOne(ctx, bson.M{"type": typ}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
