package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTTL bounds how long a connection set survives without activity,
// so a crashed instance cannot leave users online forever.
const DefaultTTL = 2 * time.Hour

// Redis shares presence across API instances. Each user's connection ids
// live in a set keyed presence:<userID>.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(addr, password string, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func key(user primitive.ObjectID) string {
	return "presence:" + user.Hex()
}

func (r *Redis) Connect(ctx context.Context, user primitive.ObjectID, connID string) error {
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key(user), connID)
	pipe.Expire(ctx, key(user), r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Disconnect(ctx context.Context, user primitive.ObjectID, connID string) error {
	return r.client.SRem(ctx, key(user), connID).Err()
}

func (r *Redis) Online(ctx context.Context, user primitive.ObjectID) (bool, error) {
	n, err := r.client.SCard(ctx, key(user)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Lookup(ctx context.Context, user primitive.ObjectID) ([]string, error) {
	return r.client.SMembers(ctx, key(user)).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
