package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/c360/adapterkit/errors"
)

// TaskRunner schedules background work for the decoupled write path. The
// host supplies an implementation (pkg/worker provides one); tests may run
// tasks on bare goroutines.
type TaskRunner interface {
	// Run schedules fn on an independent goroutine. It returns an error
	// only when the runner cannot accept more work.
	Run(ctx context.Context, fn func(context.Context)) error
}

// WriteFunc is the adapter side of a write operation: it consumes the
// bounded item channel and returns a stream of one acknowledgement per
// accepted item.
type WriteFunc[T, R any] func(ctx context.Context, items <-chan T) (*Stream[R], error)

// Write executes a decoupled write. A background task copies the caller's
// unbounded item set onto a bounded channel sized to maxItems; once that
// capacity is exhausted the remaining items are dropped and the incomplete
// marker is attached. A separate loop drains one acknowledgement per
// accepted item into the result. The two tasks are independently scheduled
// and synchronize only through the bounded channel.
func Write[T, R any](
	ctx context.Context,
	runner TaskRunner,
	items []T,
	maxItems int,
	write WriteFunc[T, R],
) ([]R, Truncation, error) {
	if runner == nil {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("task runner is required"),
			"Pipeline", "Write", "runner check")
	}
	if maxItems <= 0 {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("write requires a positive maximum, got %d", maxItems),
			"Pipeline", "Write", "limit check")
	}

	in := make(chan T, min(maxItems, len(items)))

	var dropped atomic.Int64
	submitDone := make(chan struct{})
	submit := func(taskCtx context.Context) {
		defer close(submitDone)
		defer close(in)
		for i, item := range items {
			if i >= maxItems {
				dropped.Store(int64(len(items) - maxItems))
				return
			}
			select {
			case in <- item:
			case <-taskCtx.Done():
				return
			}
		}
	}

	// Start the consumer before scheduling submission so a small channel
	// never deadlocks the producer task.
	results, err := write(ctx, in)
	if err != nil {
		return nil, none, terminal(err)
	}
	defer results.Release()

	if err := runner.Run(ctx, submit); err != nil {
		// Submission never started, so nothing else will close the channel
		// and the consumer is still waiting on it.
		close(in)
		results.Release()
		return nil, none, errors.WrapTransient(err, "Pipeline", "Write", "submission scheduling")
	}

	acks := make([]R, 0, min(maxItems, len(items)))
drain:
	for {
		select {
		case <-ctx.Done():
			return nil, none, ctx.Err()
		case ack, ok := <-results.C():
			if !ok {
				break drain
			}
			acks = append(acks, ack)
		}
	}

	select {
	case <-submitDone:
	case <-ctx.Done():
		return nil, none, ctx.Err()
	}

	if err := terminal(results.Err()); err != nil {
		return nil, none, err
	}

	marker := none
	if n := dropped.Load(); n > 0 {
		marker = Truncation{
			Incomplete: true,
			Reason: fmt.Sprintf(
				"write capacity of %d items exhausted; %d items were dropped", maxItems, n),
		}
	}
	return acks, marker, nil
}
