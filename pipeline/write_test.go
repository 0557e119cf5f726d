package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/adapterkit/errors"
)

// goRunner schedules tasks on bare goroutines.
type goRunner struct{}

func (goRunner) Run(_ context.Context, fn func(context.Context)) error {
	go fn(context.Background())
	return nil
}

// ackAll consumes every item and emits one acknowledgement per item.
func ackAll(ctx context.Context, items <-chan int) (*Stream[string], error) {
	return Produce(ctx, 0, func(ctx context.Context, s *Stream[string]) error {
		for item := range items {
			if err := s.Send(ctx, fmt.Sprintf("ack-%d", item)); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

func TestWrite_AllAccepted(t *testing.T) {
	ctx := context.Background()
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	acks, marker, err := Write(ctx, goRunner{}, items, 1000, ackAll)
	require.NoError(t, err)
	assert.Len(t, acks, 50)
	assert.False(t, marker.Incomplete)

	// One acknowledgement per accepted item, in producer order.
	for i, ack := range acks {
		require.Equal(t, fmt.Sprintf("ack-%d", i), ack)
	}
}

func TestWrite_CapacityExhausted(t *testing.T) {
	ctx := context.Background()
	items := make([]int, 1500)
	for i := range items {
		items[i] = i
	}

	acks, marker, err := Write(ctx, goRunner{}, items, 1000, ackAll)
	require.NoError(t, err)
	assert.Len(t, acks, 1000)
	assert.True(t, marker.Incomplete)
	assert.Contains(t, marker.Reason, "500")
}

func TestWrite_EmptyItems(t *testing.T) {
	ctx := context.Background()
	acks, marker, err := Write(ctx, goRunner{}, nil, 100, ackAll)
	require.NoError(t, err)
	assert.Empty(t, acks)
	assert.False(t, marker.Incomplete)
}

func TestWrite_InvalidLimit(t *testing.T) {
	_, _, err := Write(context.Background(), goRunner{}, []int{1}, 0, ackAll)
	assert.Error(t, err)
}

func TestWrite_NilRunner(t *testing.T) {
	_, _, err := Write(context.Background(), nil, []int{1}, 10, ackAll)
	assert.Error(t, err)
}

func TestWrite_WriterRejects(t *testing.T) {
	reject := func(_ context.Context, items <-chan int) (*Stream[string], error) {
		return nil, errors.ErrSecurityViolation
	}
	_, _, err := Write(context.Background(), goRunner{}, []int{1}, 10, reject)
	assert.ErrorIs(t, err, errors.ErrFeatureForbidden)
}

// saturatedRunner refuses every task, as a bounded runner at capacity does.
type saturatedRunner struct{}

func (saturatedRunner) Run(context.Context, func(context.Context)) error {
	return fmt.Errorf("runner queue is full")
}

func TestWrite_SchedulingFailureUnblocksConsumer(t *testing.T) {
	consumerDone := make(chan struct{})
	var stream *Stream[string]

	consume := func(ctx context.Context, items <-chan int) (*Stream[string], error) {
		stream = Produce(ctx, 0, func(ctx context.Context, s *Stream[string]) error {
			defer close(consumerDone)
			for range items {
			}
			return nil
		})
		return stream, nil
	}

	// No deadline: the consumer must be unblocked by the channel close, not
	// by context expiry.
	_, _, err := Write(context.Background(), saturatedRunner{}, []int{1, 2, 3}, 10, consume)
	require.Error(t, err)

	select {
	case <-consumerDone:
	case <-time.After(time.Second):
		t.Fatal("consumer still blocked after scheduling failure")
	}
	assert.True(t, stream.Released())
}

func TestWrite_SecurityErrorMidStream(t *testing.T) {
	denyAfter := func(ctx context.Context, items <-chan int) (*Stream[string], error) {
		return Produce(ctx, 0, func(ctx context.Context, s *Stream[string]) error {
			n := 0
			for item := range items {
				n++
				if n > 3 {
					return errors.ErrSecurityViolation
				}
				if err := s.Send(ctx, fmt.Sprintf("ack-%d", item)); err != nil {
					return err
				}
			}
			return nil
		}), nil
	}

	_, _, err := Write(context.Background(), goRunner{}, []int{1, 2, 3, 4, 5, 6}, 10, denyAfter)
	assert.ErrorIs(t, err, errors.ErrFeatureForbidden)
}

func TestWrite_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	stall := func(ctx context.Context, items <-chan int) (*Stream[string], error) {
		return Produce(ctx, 0, func(ctx context.Context, s *Stream[string]) error {
			<-ctx.Done()
			return ctx.Err()
		}), nil
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := Write(ctx, goRunner{}, []int{1, 2, 3}, 10, stall)
		done <- err
	}()

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
