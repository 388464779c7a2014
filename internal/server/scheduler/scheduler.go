// Package scheduler runs periodic jobs until the context is cancelled.
package scheduler

import (
	"context"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Job is run once at start and then every Interval. A run that is still in
// progress when the next tick fires delays it; runs never overlap.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	log  logging.Logger
}

func New(logger logging.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, log: logger.With("module", "scheduler")}
}

// Run blocks until ctx is done and every job has returned. Job errors are
// logged and do not stop the job.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.log.Warn(ctx, "job disabled", "job", job.Name)
			continue
		}
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx, job)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error(ctx, "job failed", "job", job.Name, "error", err)
		return
	}
	s.log.Debug(ctx, "job finished", "job", job.Name, "took", time.Since(start))
}
