package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/logger"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) RunOnce(ctx context.Context) (int, error) {
	j.runs.Add(1)
	return 1, j.err
}

func TestRunnerRunsImmediatelyAndOnTick(t *testing.T) {
	job := &countingJob{}
	r := NewRunner(logger.NewNop())
	r.Register(job, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunnerKeepsGoingAfterErrors(t *testing.T) {
	job := &countingJob{err: errors.New("boom")}
	r := NewRunner(logger.NewNop())
	r.Register(job, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRegisterIgnoresDisabledJobs(t *testing.T) {
	r := NewRunner(logger.NewNop())
	r.Register(&countingJob{}, 0)
	assert.Empty(t, r.jobs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
