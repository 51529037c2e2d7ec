// Package jobs runs the application's background jobs on fixed
// intervals.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of recurring work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job      Job
	interval time.Duration
}

// Scheduler runs registered jobs on their intervals. Every job also runs
// once immediately when the scheduler starts.
type Scheduler struct {
	logger  *zap.Logger
	entries []entry
	wg      sync.WaitGroup
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register adds a job with its run interval. Must be called before Start.
func (s *Scheduler) Register(job Job, interval time.Duration) {
	s.entries = append(s.entries, entry{job: job, interval: interval})
}

// Start launches one goroutine per job and returns. Jobs stop when the
// context is cancelled; Wait blocks until they have all drained.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

// Wait blocks until all job goroutines have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	s.runOnce(ctx, e.job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, e.job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	s.logger.Info("job started", zap.String("job", job.Name()))
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("job failed",
			zap.String("job", job.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("job finished",
		zap.String("job", job.Name()),
		zap.Duration("duration", time.Since(start)),
	)
}
