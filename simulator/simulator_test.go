package simulator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/extension"
	"github.com/c360/adapterkit/pipeline"
	"github.com/c360/adapterkit/resolver"
	"github.com/c360/adapterkit/variant"
)

func newRunning(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(DefaultConfig("sim-1"))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(time.Second) })
	return a
}

func drain[T any](t *testing.T, s *pipeline.Stream[T]) []T {
	t.Helper()
	var items []T
	for item := range s.C() {
		items = append(items, item)
	}
	require.NoError(t, s.Err())
	return items
}

func TestConfig_Validate(t *testing.T) {
	t.Run("requires id", func(t *testing.T) {
		cfg := Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects duplicate tags", func(t *testing.T) {
		cfg := Config{ID: "sim", Tags: []TagSpec{{Name: "a"}, {Name: "a"}}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown wave", func(t *testing.T) {
		cfg := Config{ID: "sim", Tags: []TagSpec{{Name: "a", Wave: "triangle"}}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("applies defaults", func(t *testing.T) {
		cfg := Config{ID: "sim", Tags: []TagSpec{{Name: "a"}}}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, WaveSine, cfg.Tags[0].Wave)
		assert.Equal(t, time.Minute, cfg.Tags[0].Period)
		assert.Equal(t, adapter.DefaultMaxWriteSize, cfg.MaxWriteSize)
	})
}

func TestAdapter_FeatureSet(t *testing.T) {
	a := newRunning(t)
	features := a.Features()

	assert.True(t, features.Contains(string(adapter.FeatureTagSearch)))
	assert.True(t, features.Contains(string(adapter.FeatureReadSnapshot)))
	assert.True(t, features.Contains(string(adapter.FeatureReadRaw)))
	assert.True(t, features.Contains(string(adapter.FeatureWriteValues)))
	assert.True(t, features.Contains(PingFeatureURI))
	assert.False(t, features.Contains(string(adapter.FeatureReadAnnotations)))
}

func TestAdapter_SearchTags(t *testing.T) {
	ctx := context.Background()
	a := newRunning(t)

	t.Run("all tags", func(t *testing.T) {
		s, err := a.SearchTags(ctx, &adapter.SearchTagsRequest{})
		require.NoError(t, err)
		defs := drain(t, s)
		assert.Len(t, defs, 3)
	})

	t.Run("name filter", func(t *testing.T) {
		s, err := a.SearchTags(ctx, &adapter.SearchTagsRequest{Name: "sine"})
		require.NoError(t, err)
		defs := drain(t, s)
		require.Len(t, defs, 1)
		assert.Equal(t, "sine-1", defs[0].ID)
	})

	t.Run("paging", func(t *testing.T) {
		s, err := a.SearchTags(ctx, &adapter.SearchTagsRequest{PageSize: 2, Page: 2})
		require.NoError(t, err)
		defs := drain(t, s)
		assert.Len(t, defs, 1)
	})
}

func TestAdapter_ReadSnapshot(t *testing.T) {
	ctx := context.Background()
	a := newRunning(t)

	s, err := a.ReadSnapshot(ctx, &adapter.ReadSnapshotRequest{
		Tags: []string{"sine-1", "square-1", "no-such-tag"},
	})
	require.NoError(t, err)

	values := drain(t, s)
	require.Len(t, values, 2, "unknown tags are skipped")
	for _, v := range values {
		assert.Equal(t, adapter.QualityGood, v.Quality)
		assert.Equal(t, variant.TypeDouble, v.Value.Type)
	}
}

func TestAdapter_ReadSnapshotValidation(t *testing.T) {
	ctx := context.Background()
	a := newRunning(t)

	_, err := a.ReadSnapshot(ctx, &adapter.ReadSnapshotRequest{})
	assert.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestAdapter_ReadRaw(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig("sim-1")
	cfg.SampleEvery = time.Second
	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer func() { _ = a.Stop(time.Second) }()

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s, err := a.ReadRaw(ctx, &adapter.ReadRawRequest{
		Tags:  []string{"sine-1"},
		Start: start,
		End:   start.Add(10 * time.Second),
	})
	require.NoError(t, err)

	values := drain(t, s)
	assert.Len(t, values, 11, "inclusive range at one-second sampling")

	for i := 1; i < len(values); i++ {
		assert.True(t, values[i].Timestamp.After(values[i-1].Timestamp),
			"samples are oldest first")
	}
}

func TestAdapter_ReadRawValidation(t *testing.T) {
	ctx := context.Background()
	a := newRunning(t)

	now := time.Now()
	_, err := a.ReadRaw(ctx, &adapter.ReadRawRequest{
		Tags:  []string{"sine-1"},
		Start: now,
		End:   now.Add(-time.Hour),
	})
	assert.Error(t, err, "inverted range rejected")
}

func TestAdapter_WaveShapes(t *testing.T) {
	a, err := New(Config{ID: "sim", Tags: []TagSpec{
		{Name: "sq", Wave: WaveSquare, Period: 10 * time.Second, Amplitude: 5, Offset: 1},
		{Name: "saw", Wave: WaveSawtooth, Period: 10 * time.Second, Amplitude: 10},
	}})
	require.NoError(t, err)

	base := time.Unix(0, 0)

	t.Run("square high then low", func(t *testing.T) {
		tag, _ := a.findTag("sq")
		high, ok := variant.As[float64](a.value(tag, base.Add(2*time.Second)).Value)
		require.True(t, ok)
		low, ok := variant.As[float64](a.value(tag, base.Add(7*time.Second)).Value)
		require.True(t, ok)
		assert.Equal(t, 6.0, high)
		assert.Equal(t, 1.0, low)
	})

	t.Run("sawtooth ramps", func(t *testing.T) {
		tag, _ := a.findTag("saw")
		early, ok := variant.As[float64](a.value(tag, base.Add(time.Second)).Value)
		require.True(t, ok)
		late, ok := variant.As[float64](a.value(tag, base.Add(9*time.Second)).Value)
		require.True(t, ok)
		assert.Less(t, early, late)
	})
}

func TestAdapter_WriteValues(t *testing.T) {
	ctx := context.Background()
	a := newRunning(t)

	items := []adapter.WriteValueItem{
		{TagID: "sine-1", Value: variant.NewDouble(99.5)},
		{TagID: "unknown", Value: variant.NewDouble(1)},
	}

	in := make(chan adapter.WriteValueItem, len(items))
	for _, item := range items {
		in <- item
	}
	close(in)

	s, err := a.WriteValues(ctx, in)
	require.NoError(t, err)

	acks := drain(t, s)
	require.Len(t, acks, 2)
	assert.Equal(t, adapter.WriteStatusSuccess, acks[0].Status)
	assert.Equal(t, adapter.WriteStatusFail, acks[1].Status)

	// The written value overrides the wave on the next snapshot.
	snap, err := a.ReadSnapshot(ctx, &adapter.ReadSnapshotRequest{Tags: []string{"sine-1"}})
	require.NoError(t, err)
	values := drain(t, snap)
	require.Len(t, values, 1)
	got, ok := variant.As[float64](values[0].Value)
	require.True(t, ok)
	assert.Equal(t, 99.5, got)
}

func TestAdapter_NotRunningRejectsReads(t *testing.T) {
	a, err := New(DefaultConfig("stopped"))
	require.NoError(t, err)

	_, err = a.ReadSnapshot(context.Background(), &adapter.ReadSnapshotRequest{Tags: []string{"sine-1"}})
	assert.ErrorIs(t, err, errors.ErrAdapterNotRunning)
}

func TestAdapter_PingExtension(t *testing.T) {
	ctx := context.Background()
	a := newRunning(t)

	registry := adapter.NewRegistry()
	require.NoError(t, registry.Register(a))
	inv := extension.NewInvoker(resolver.New(registry))

	t.Run("discovery", func(t *testing.T) {
		descriptor, err := inv.GetDescriptor(ctx, "sim-1", PingFeatureURI)
		require.NoError(t, err)
		assert.Equal(t, PingFeatureURI, descriptor.URI)
		require.Len(t, descriptor.Operations, 1)
	})

	t.Run("invoke", func(t *testing.T) {
		opURI, err := extension.OperationURI(PingFeatureURI, "ping")
		require.NoError(t, err)

		resp, err := inv.InvokeOperation(ctx, "sim-1", &extension.InvocationRequest{
			OperationID: opURI,
			Body:        json.RawMessage(`{"Message":"hello plant"}`),
		})
		require.NoError(t, err)
		require.True(t, resp.Success)

		var pong pingResponse
		require.NoError(t, json.Unmarshal(resp.Result, &pong))
		assert.Equal(t, "hello plant", pong.Message)
		assert.False(t, pong.UtcTime.IsZero())
	})

	t.Run("schema rejects missing message", func(t *testing.T) {
		opURI, err := extension.OperationURI(PingFeatureURI, "ping")
		require.NoError(t, err)

		_, err = inv.InvokeOperation(ctx, "sim-1", &extension.InvocationRequest{
			OperationID: opURI,
			Body:        json.RawMessage(`{}`),
		})
		assert.ErrorIs(t, err, errors.ErrSchemaInvalid)
	})
}
