// internal/app/system/presence/presence.go
package presence

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registry tracks which users have open realtime connections. A user is
// online while at least one connection is registered.
type Registry interface {
	Connect(ctx context.Context, user primitive.ObjectID, connID string) error
	Disconnect(ctx context.Context, user primitive.ObjectID, connID string) error
	Online(ctx context.Context, user primitive.ObjectID) (bool, error)
	Lookup(ctx context.Context, user primitive.ObjectID) ([]string, error)
	Close() error
}

// Memory is a single-process registry.
type Memory struct {
	mu    sync.RWMutex
	conns map[primitive.ObjectID]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{conns: make(map[primitive.ObjectID]map[string]struct{})}
}

func (m *Memory) Connect(_ context.Context, user primitive.ObjectID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.conns[user]
	if !ok {
		set = make(map[string]struct{})
		m.conns[user] = set
	}
	set[connID] = struct{}{}
	return nil
}

func (m *Memory) Disconnect(_ context.Context, user primitive.ObjectID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.conns[user]
	delete(set, connID)
	if len(set) == 0 {
		delete(m.conns, user)
	}
	return nil
}

func (m *Memory) Online(_ context.Context, user primitive.ObjectID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns[user]) > 0, nil
}

func (m *Memory) Lookup(_ context.Context, user primitive.ObjectID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.conns[user]))
	for id := range m.conns[user] {
		out = append(out, id)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// AnyOnline reports whether any of users is online.
func AnyOnline(ctx context.Context, r Registry, users []primitive.ObjectID) (bool, error) {
	for _, u := range users {
		ok, err := r.Online(ctx, u)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
