package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// RunFunc performs one scrape run
type RunFunc func(ctx context.Context) error

// Scheduler repeats a run on a fixed interval. Runs never overlap: the next
// tick is only considered once the previous run has returned.
type Scheduler struct {
	run      RunFunc
	interval time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(run RunFunc, interval time.Duration) *Scheduler {
	return &Scheduler{
		run:      run,
		interval: interval,
	}
}

// Run executes a run immediately and then once per interval until ctx is cancelled.
// Failed runs are logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		start := time.Now()
		if err := s.run(ctx); err != nil {
			log.Error("scheduled run failed", "run", n, "err", err)
		} else {
			log.Info("scheduled run done", "run", n, "duration", time.Since(start).Round(time.Millisecond))
		}

		if ctx.Err() != nil {
			log.Info("scheduler stopped")
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
