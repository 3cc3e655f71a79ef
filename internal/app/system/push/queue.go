package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by Enqueue when the in-memory buffer is full.
var ErrQueueFull = errors.New("push queue full")

// Queue carries notifications from request handlers to delivery workers.
// Enqueue must not block the caller for long. Consume blocks until ctx is
// done, calling handle for each notification.
type Queue interface {
	Enqueue(ctx context.Context, n Notification) error
	Consume(ctx context.Context, handle func(context.Context, Notification)) error
	Close() error
}

// MemoryQueue is a bounded in-process channel.
type MemoryQueue struct {
	ch chan Notification
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan Notification, size)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, n Notification) error {
	select {
	case q.ch <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, handle func(context.Context, Notification)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-q.ch:
			handle(ctx, n)
		}
	}
}

func (q *MemoryQueue) Close() error { return nil }

// RabbitQueue publishes notifications as persistent JSON messages on a
// durable queue, so pending pushes survive a restart.
type RabbitQueue struct {
	conn *amqp.Connection
	pub  *amqp.Channel
	name string
	log  *zap.Logger
	mu   sync.Mutex
}

func NewRabbitQueue(url, name string, log *zap.Logger) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq declare %s: %w", name, err)
	}
	return &RabbitQueue{conn: conn, pub: ch, name: name, log: log}, nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pub.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume opens its own channel so each worker acknowledges independently.
func (q *RabbitQueue) Consume(ctx context.Context, handle func(context.Context, Notification)) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			var n Notification
			if err := json.Unmarshal(d.Body, &n); err != nil {
				q.log.Warn("discarding malformed push message", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			handle(ctx, n)
			_ = d.Ack(false)
		}
	}
}

func (q *RabbitQueue) Close() error {
	if err := q.pub.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return q.conn.Close()
}
