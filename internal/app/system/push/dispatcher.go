package push

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

const (
	enqueueTimeout = 2 * time.Second
	deliverTimeout = 30 * time.Second
)

// Dispatcher fans notifications out to devices in the background. Publish
// never fails the caller: a notification that cannot be queued is logged
// and dropped.
type Dispatcher struct {
	queue    Queue
	provider Provider
	tokens   TokenSource
	log      *zap.Logger
	metrics  *metrics.Metrics
	workers  int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher wires a dispatcher. m may be nil.
func NewDispatcher(q Queue, p Provider, tokens TokenSource, workers int, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{queue: q, provider: p, tokens: tokens, log: log, metrics: m, workers: workers}
}

// Publish queues n for delivery.
func (d *Dispatcher) Publish(n Notification) {
	if d == nil {
		return
	}
	if !n.Broadcast && len(n.UserIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if err := d.queue.Enqueue(ctx, n); err != nil {
		d.log.Warn("push dropped", zap.String("title", n.Title), zap.Error(err))
		d.count("dropped")
		return
	}
	d.count("queued")
}

func (d *Dispatcher) count(result string) {
	if d.metrics != nil {
		d.metrics.PushPublishedTotal.WithLabelValues(result).Inc()
	}
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.log.Info("push worker started", zap.Int("worker", id))
			if err := d.queue.Consume(ctx, d.deliver); err != nil {
				d.log.Error("push worker stopped", zap.Int("worker", id), zap.Error(err))
				return
			}
			d.log.Info("push worker stopped", zap.Int("worker", id))
		}(i)
	}
}

// Stop cancels the workers, waits for them and closes the queue.
func (d *Dispatcher) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return d.queue.Close()
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	users := n.UserIDs
	if n.Broadcast {
		users = nil
	}
	tokens, err := d.tokens.TokensFor(ctx, users)
	if err != nil {
		d.log.Error("push token lookup failed", zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	res, err := d.provider.Send(ctx, tokens, n)
	if err != nil {
		d.log.Error("push send failed", zap.String("title", n.Title), zap.Error(err))
	}
	if d.metrics != nil {
		d.metrics.PushDeliveredTotal.WithLabelValues("success").Add(float64(res.Success))
		d.metrics.PushDeliveredTotal.WithLabelValues("failure").Add(float64(res.Failure))
	}
	if len(res.Unregistered) == 0 {
		return
	}
	pruned, err := d.tokens.Prune(ctx, res.Unregistered)
	if err != nil {
		d.log.Warn("push token prune failed", zap.Error(err))
		return
	}
	if d.metrics != nil {
		d.metrics.PushPrunedTotal.Add(float64(pruned))
	}
	d.log.Info("pruned unregistered device tokens", zap.Int64("count", pruned))
}
