// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of scheduled work. Spec is a cron expression with a
// seconds field, e.g. "0 */15 * * * *".
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// AutoStatuser moves overdue work plans to ignored or rejected.
type AutoStatuser interface {
	AutoStatus(ctx context.Context, now time.Time, log *zap.Logger) (int, error)
}

// Purger removes expired records and returns how many were deleted.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// WorkPlanAutoStatusJob applies the end-date rule to every overdue plan.
func WorkPlanAutoStatusJob(plans AutoStatuser, logger *zap.Logger, spec string) Job {
	return Job{
		Name: "workplan-autostatus",
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := plans.AutoStatus(ctx, time.Now().UTC(), logger)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("work plans auto-updated", zap.Int("count", n))
			}
			return nil
		},
	}
}

// PurgeJob deletes expired rows through p. Mail OTPs also carry a TTL index;
// this catches what the TTL monitor has not reached yet.
func PurgeJob(name string, p Purger, logger *zap.Logger, spec string) Job {
	return Job{
		Name: name,
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Debug("purged expired records", zap.String("job", name), zap.Int64("count", n))
			}
			return nil
		},
	}
}
