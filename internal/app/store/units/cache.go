package unitstore

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/churchhub/internal/domain/models"
)

// Cache keeps recently used units in memory. Authorization reads a unit's
// church and ministry on nearly every request; entries expire after ttl and
// are dropped explicitly whenever the unit changes.
type Cache struct {
	store *Store
	lru   *lru.LRU[primitive.ObjectID, models.Unit]
}

func NewCache(store *Store, size int, ttl time.Duration) *Cache {
	if size < 16 {
		size = 16
	}
	return &Cache{
		store: store,
		lru:   lru.NewLRU[primitive.ObjectID, models.Unit](size, nil, ttl),
	}
}

// Store exposes the underlying store for writes.
func (c *Cache) Store() *Store { return c.store }

// Get returns the unit, loading it on a miss.
func (c *Cache) Get(ctx context.Context, id primitive.ObjectID) (*models.Unit, error) {
	if u, ok := c.lru.Get(id); ok {
		return &u, nil
	}
	u, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.lru.Add(id, *u)
	return u, nil
}

// Many returns the known units among ids, loading misses in one query.
func (c *Cache) Many(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Unit, error) {
	out := make(map[primitive.ObjectID]models.Unit, len(ids))
	var missing []primitive.ObjectID
	for _, id := range ids {
		if u, ok := c.lru.Get(id); ok {
			out[id] = u
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := c.store.Many(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, u := range loaded {
		c.lru.Add(id, u)
		out[id] = u
	}
	return out, nil
}

// Invalidate drops a unit after it was updated or deleted.
func (c *Cache) Invalidate(id primitive.ObjectID) {
	c.lru.Remove(id)
}

func (c *Cache) Len() int { return c.lru.Len() }
