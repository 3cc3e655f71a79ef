package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	r, err := NewRedis(mr.Addr(), "", time.Minute)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis registry: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		mr.Close()
	})
	return r, mr
}

func registries(t *testing.T) map[string]Registry {
	r, _ := setupRedis(t)
	return map[string]Registry{"memory": NewMemory(), "redis": r}
}

func TestRegistry_ConnectDisconnect(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user := primitive.NewObjectID()

			online, err := reg.Online(ctx, user)
			require.NoError(t, err)
			assert.False(t, online)

			require.NoError(t, reg.Connect(ctx, user, "c1"))
			require.NoError(t, reg.Connect(ctx, user, "c2"))
			ids, err := reg.Lookup(ctx, user)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"c1", "c2"}, ids)

			// Still online while one connection remains.
			require.NoError(t, reg.Disconnect(ctx, user, "c1"))
			online, _ = reg.Online(ctx, user)
			assert.True(t, online)

			require.NoError(t, reg.Disconnect(ctx, user, "c2"))
			online, _ = reg.Online(ctx, user)
			assert.False(t, online)
		})
	}
}

func TestAnyOnline(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, reg.Connect(ctx, b, "x"))

	ok, err := AnyOnline(ctx, reg, []primitive.ObjectID{a, b})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = AnyOnline(ctx, reg, []primitive.ObjectID{a})
	assert.False(t, ok)
}

func TestRedis_EntriesExpire(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	require.NoError(t, r.Connect(ctx, user, "c1"))

	mr.FastForward(2 * time.Minute)
	online, err := r.Online(ctx, user)
	require.NoError(t, err)
	assert.False(t, online)
}
