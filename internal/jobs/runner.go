// Package jobs runs periodic maintenance work next to the HTTP server.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/example/storefront/internal/logger"
)

// Job is one unit of periodic work. RunOnce reports how many records it
// touched.
type Job interface {
	Name() string
	RunOnce(ctx context.Context) (int, error)
}

type schedule struct {
	job      Job
	interval time.Duration
}

// Runner ticks every registered job on its own interval until the context
// is cancelled.
type Runner struct {
	log  *logger.Logger
	jobs []schedule
}

func NewRunner(log *logger.Logger) *Runner {
	return &Runner{log: log.With("component", "jobs")}
}

// Register adds job to the runner. Jobs with a non-positive interval are
// ignored.
func (r *Runner) Register(job Job, interval time.Duration) {
	if interval <= 0 {
		r.log.Warn("job disabled", "job", job.Name())
		return
	}
	r.jobs = append(r.jobs, schedule{job: job, interval: interval})
}

// Run blocks until ctx is done. Each job runs once at start and then on every
// tick. Errors are logged and the job keeps its schedule.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, s := range r.jobs {
		wg.Add(1)
		go func(s schedule) {
			defer wg.Done()
			r.loop(ctx, s)
		}(s)
	}
	wg.Wait()
	return nil
}

func (r *Runner) loop(ctx context.Context, s schedule) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	r.log.Info("job scheduled", "job", s.job.Name(), "interval", s.interval.String())
	r.tick(ctx, s.job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, s.job)
		}
	}
}

func (r *Runner) tick(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	n, err := job.RunOnce(ctx)
	if err != nil {
		r.log.Error("job failed", "job", job.Name(), "error", err)
		return
	}
	if n > 0 {
		r.log.Info("job finished", "job", job.Name(), "affected", n, "took", time.Since(started).String())
	}
}
