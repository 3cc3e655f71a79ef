// internal/app/store/devicetokens/devicetokenstore.go
package devicetokenstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "device_tokens"

var errTokenRequired = errors.New("token required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Register upserts a token. A token already registered to another user is
// reassigned to user.
func (s *Store) Register(ctx context.Context, token string, user *primitive.ObjectID, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errTokenRequired
	}
	now := time.Now().UTC()
	set := bson.M{"platform": strings.ToLower(strings.TrimSpace(platform)), "updated_at": now}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "created_at": now},
	}
	if user != nil {
		set["user_id"] = *user
	} else {
		update["$unset"] = bson.M{"user_id": ""}
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"token": token}, update, options.Update().SetUpsert(true))
	return err
}

func (s *Store) Unregister(ctx context.Context, token string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token": strings.TrimSpace(token)})
	return err
}

// Prune removes tokens the push provider reported as unregistered.
func (s *Store) Prune(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"token": bson.M{"$in": tokens}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TokensFor returns the tokens registered to any of users. A nil users
// slice returns every token.
func (s *Store) TokensFor(ctx context.Context, users []primitive.ObjectID) ([]string, error) {
	q := bson.M{}
	if users != nil {
		if len(users) == 0 {
			return nil, nil
		}
		q["user_id"] = bson.M{"$in": users}
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetProjection(bson.M{"token": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var row struct {
			Token string `bson:"token"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.Token)
	}
	return out, cur.Err()
}

// IsValidation reports whether err is an input error from Register.
func IsValidation(err error) bool {
	return errors.Is(err, errTokenRequired)
}
