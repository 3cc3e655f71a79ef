// internal/app/system/push/push.go
package push

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notification is one push message. Broadcast sends to every registered
// device; otherwise UserIDs names the recipients.
type Notification struct {
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Data      map[string]string    `json:"data,omitempty"`
	UserIDs   []primitive.ObjectID `json:"user_ids,omitempty"`
	Broadcast bool                 `json:"broadcast,omitempty"`
}

// Result summarizes one provider send.
type Result struct {
	Success      int
	Failure      int
	Unregistered []string // tokens the provider no longer recognizes
}

// Provider delivers a notification to device tokens.
type Provider interface {
	Send(ctx context.Context, tokens []string, n Notification) (Result, error)
}

// TokenSource resolves recipients to device tokens and drops dead ones.
// A nil users slice means every registered token.
type TokenSource interface {
	TokensFor(ctx context.Context, users []primitive.ObjectID) ([]string, error)
	Prune(ctx context.Context, tokens []string) (int64, error)
}

// LogProvider logs notifications instead of sending them.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log}
}

func (p *LogProvider) Send(_ context.Context, tokens []string, n Notification) (Result, error) {
	p.log.Info("push (log provider)",
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Int("tokens", len(tokens)))
	return Result{Success: len(tokens)}, nil
}
