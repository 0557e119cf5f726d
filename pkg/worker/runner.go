package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Runner schedules independent background tasks with a concurrency cap.
// It satisfies the task-runner contract the write pipeline depends on:
// each task runs on its own goroutine and is tracked for shutdown.
type Runner struct {
	slots   chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// NewRunner creates a Runner allowing up to maxConcurrent simultaneous
// tasks. maxConcurrent <= 0 selects a default of 64.
func NewRunner(maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	return &Runner{
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Run schedules fn on its own goroutine. It fails fast when the runner is
// stopped or saturated rather than queueing, so callers can surface
// overload instead of building invisible backlog.
func (r *Runner) Run(ctx context.Context, fn func(context.Context)) error {
	if r.stopped.Load() {
		return ErrRunnerStopped
	}

	select {
	case r.slots <- struct{}{}:
	default:
		return ErrRunnerBusy
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()
		fn(ctx)
	}()
	return nil
}

// Active returns the number of currently running tasks.
func (r *Runner) Active() int {
	return len(r.slots)
}

// Stop rejects new tasks and waits up to timeout for running tasks to
// finish.
func (r *Runner) Stop(timeout time.Duration) error {
	r.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
