package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_SendAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewStream[int](2)

	require.NoError(t, s.Send(ctx, 1))
	require.NoError(t, s.Send(ctx, 2))
	s.Close(nil)

	var got []int
	for v := range s.C() {
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got)
	assert.NoError(t, s.Err())
}

func TestStream_SendRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream[int](0)

	cancel()
	err := s.Send(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_TrySend(t *testing.T) {
	s := NewStream[int](1)
	assert.True(t, s.TrySend(1))
	assert.False(t, s.TrySend(2), "full channel must not accept")
}

func TestStream_CloseIdempotent(t *testing.T) {
	s := NewStream[int](0)
	s.Close(assert.AnError)
	s.Close(nil)
	assert.ErrorIs(t, s.Err(), assert.AnError, "first close wins")
}

func TestStream_ReleaseExactlyOnce(t *testing.T) {
	var releases atomic.Int32
	s := NewStream[int](0)
	s.OnRelease(func() { releases.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), releases.Load())
	assert.True(t, s.Released())
}

func TestProduce(t *testing.T) {
	ctx := context.Background()
	s := Produce(ctx, 4, func(ctx context.Context, s *Stream[int]) error {
		for i := 0; i < 3; i++ {
			if err := s.Send(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})

	var got []int
	for v := range s.C() {
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.NoError(t, s.Err())
}

func TestProduce_CancellationStopsProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	s := Produce(ctx, 0, func(ctx context.Context, s *Stream[int]) error {
		close(started)
		for i := 0; ; i++ {
			if err := s.Send(ctx, i); err != nil {
				return err
			}
		}
	})

	<-started
	<-s.C() // take one item, then cancel
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.C():
			if !ok {
				assert.ErrorIs(t, s.Err(), context.Canceled)
				return
			}
		case <-deadline:
			t.Fatal("producer did not stop after cancellation")
		}
	}
}

func TestFromSlice(t *testing.T) {
	s := FromSlice([]string{"a", "b"})
	var got []string
	for v := range s.C() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.NoError(t, s.Err())
}
