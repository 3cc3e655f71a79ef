// internal/app/store/accesscodes/accesscodestore.go
package accesscodestore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/churchhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "access_codes"

// DefaultTTL is how long an issued code can be redeemed.
const DefaultTTL = 6 * time.Hour

var (
	ErrInvalid = errors.New("Invalid code")
	ErrUsed    = errors.New("Code used")
	ErrExpired = errors.New("Code expired")
)

type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection(Collection), ttl: ttl}
}

// Issue creates a fresh six-digit code. Codes are unique; a collision is
// retried with a new value.
func (s *Store) Issue(ctx context.Context, role string, unit *primitive.ObjectID, by primitive.ObjectID) (models.AccessCode, error) {
	now := time.Now().UTC()
	for attempt := 0; attempt < 5; attempt++ {
		code, err := sixDigits()
		if err != nil {
			return models.AccessCode{}, err
		}
		ac := models.AccessCode{
			ID:        primitive.NewObjectID(),
			Code:      code,
			Role:      role,
			UnitID:    unit,
			CreatedBy: by,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		}
		_, err = s.c.InsertOne(ctx, ac)
		if err == nil {
			return ac, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.AccessCode{}, err
		}
	}
	return models.AccessCode{}, errors.New("could not allocate a unique access code")
}

// Validate reports the state of a code without consuming it.
func (s *Store) Validate(ctx context.Context, code string) (models.AccessCode, error) {
	var ac models.AccessCode
	err := s.c.FindOne(ctx, bson.M{"code": code}).Decode(&ac)
	if err == mongo.ErrNoDocuments {
		return models.AccessCode{}, ErrInvalid
	}
	if err != nil {
		return models.AccessCode{}, err
	}
	if ac.Used {
		return ac, ErrUsed
	}
	if time.Now().After(ac.ExpiresAt) {
		return ac, ErrExpired
	}
	return ac, nil
}

// Consume marks an unused, unexpired code as used by user in a single
// conditional update. When the update matches nothing, the reason is looked
// up so the caller can report it.
func (s *Store) Consume(ctx context.Context, code string, user primitive.ObjectID) (models.AccessCode, error) {
	now := time.Now().UTC()
	var ac models.AccessCode
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"code": code, "used": false, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"used": true, "used_by": user, "used_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ac)
	if err == mongo.ErrNoDocuments {
		if _, verr := s.Validate(ctx, code); verr != nil {
			return models.AccessCode{}, verr
		}
		return models.AccessCode{}, ErrInvalid
	}
	if err != nil {
		return models.AccessCode{}, err
	}
	return ac, nil
}

// Release undoes a consume when the registration that used it failed.
func (s *Store) Release(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"used": false}, "$unset": bson.M{"used_by": "", "used_at": ""}})
	return err
}

// PurgeExpired deletes codes that expired more than a day ago.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC().Add(-24 * time.Hour)}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
