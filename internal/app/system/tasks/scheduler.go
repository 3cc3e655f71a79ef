package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs Jobs on cron schedules in UTC. A job never overlaps with
// its own previous run.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler. Each run gets its own context bounded by
// timeout. m may be nil.
func NewScheduler(logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		log:     logger,
		metrics: m,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job. An invalid spec is an error.
func (s *Scheduler) Add(job Job) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).
		Then(cron.FuncJob(func() { s.RunNow(job) }))
	if _, err := s.cron.AddJob(job.Spec, wrapped); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	s.log.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

// RunNow executes job synchronously with the scheduler's logging and
// metrics.
func (s *Scheduler) RunNow(job Job) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	result := "ok"
	if err != nil {
		result = "error"
		s.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
	} else {
		s.log.Debug("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	}
	if s.metrics != nil {
		s.metrics.JobRunsTotal.WithLabelValues(job.Name, result).Inc()
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
	s.log.Info("scheduler stopped")
}
