package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeTokens struct {
	mu       sync.Mutex
	byUser   map[primitive.ObjectID][]string
	all      []string
	pruned   []string
	lastUser []primitive.ObjectID
}

func (f *fakeTokens) TokensFor(_ context.Context, users []primitive.ObjectID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = users
	if users == nil {
		return f.all, nil
	}
	var out []string
	for _, u := range users {
		out = append(out, f.byUser[u]...)
	}
	return out, nil
}

func (f *fakeTokens) Prune(_ context.Context, tokens []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, tokens...)
	return int64(len(tokens)), nil
}

type fakeProvider struct {
	sent chan []string
	dead map[string]bool
}

func (p *fakeProvider) Send(_ context.Context, tokens []string, _ Notification) (Result, error) {
	var res Result
	for _, t := range tokens {
		if p.dead[t] {
			res.Failure++
			res.Unregistered = append(res.Unregistered, t)
		} else {
			res.Success++
		}
	}
	p.sent <- tokens
	return res, nil
}

func TestDispatcher_DeliversAndPrunes(t *testing.T) {
	user := primitive.NewObjectID()
	tokens := &fakeTokens{byUser: map[primitive.ObjectID][]string{user: {"good", "stale"}}}
	prov := &fakeProvider{sent: make(chan []string, 1), dead: map[string]bool{"stale": true}}
	m := metrics.New(nil)

	d := NewDispatcher(NewMemoryQueue(4), prov, tokens, 2, zap.NewNop(), m)
	d.Start(context.Background())
	defer d.Stop()

	d.Publish(Notification{Title: "Account Approved", UserIDs: []primitive.ObjectID{user}})

	select {
	case got := <-prov.sent:
		assert.ElementsMatch(t, []string{"good", "stale"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	require.Eventually(t, func() bool {
		tokens.mu.Lock()
		defer tokens.mu.Unlock()
		return len(tokens.pruned) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"stale"}, tokens.pruned)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PushPublishedTotal.WithLabelValues("queued")))
}

func TestDispatcher_BroadcastUsesAllTokens(t *testing.T) {
	tokens := &fakeTokens{all: []string{"a", "b", "c"}}
	prov := &fakeProvider{sent: make(chan []string, 1)}
	d := NewDispatcher(NewMemoryQueue(1), prov, tokens, 1, zap.NewNop(), nil)
	d.Start(context.Background())
	defer d.Stop()

	d.Publish(Notification{Title: "Service moved", Broadcast: true, UserIDs: []primitive.ObjectID{primitive.NewObjectID()}})
	select {
	case got := <-prov.sent:
		assert.Len(t, got, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}
	tokens.mu.Lock()
	assert.Nil(t, tokens.lastUser)
	tokens.mu.Unlock()
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	m := metrics.New(nil)
	// No workers started: the queue fills and further publishes are dropped.
	d := NewDispatcher(NewMemoryQueue(1), &fakeProvider{sent: make(chan []string, 8)}, &fakeTokens{}, 1, zap.NewNop(), m)
	n := Notification{Title: "x", Broadcast: true}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Publish(n)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PushPublishedTotal.WithLabelValues("queued")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.PushPublishedTotal.WithLabelValues("dropped")))
}

func TestDispatcher_NoRecipientsIsNoop(t *testing.T) {
	m := metrics.New(nil)
	d := NewDispatcher(NewMemoryQueue(1), &fakeProvider{}, &fakeTokens{}, 1, zap.NewNop(), m)
	d.Publish(Notification{Title: "nobody"})
	assert.Equal(t, float64(0), testutil.ToFloat64(m.PushPublishedTotal.WithLabelValues("queued")))

	var nilDispatcher *Dispatcher
	nilDispatcher.Publish(Notification{Title: "x", Broadcast: true})
}
