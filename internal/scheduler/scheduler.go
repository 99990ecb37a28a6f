// Package scheduler runs recurring bot jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	applog "flowerbot/internal/log"
)

// Job is one unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

type Scheduler struct {
	cron   *cron.Cron
	logger *applog.Logger
}

// New creates a scheduler whose standard five-field schedules are evaluated
// in loc.
func New(loc *time.Location, logger *applog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger.WithComponent(applog.ComponentScheduler),
	}
}

// AddJob registers job under a standard cron schedule, e.g. "0 21 * * *".
// Each run gets ctx; a failed run is logged and the schedule continues.
func (s *Scheduler) AddJob(ctx context.Context, schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.DebugContext(ctx, "Running job", "job", job.Name())
		if err := job.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Job failed", "job", job.Name(), applog.FieldError, err)
			return
		}
		s.logger.DebugContext(ctx, "Job completed", "job", job.Name())
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}

	s.logger.InfoContext(ctx, "Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	s.logger.InfoContext(ctx, "Running job immediately", "job", job.Name())
	return job.Run(ctx)
}
