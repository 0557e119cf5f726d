package metric

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.Register("gateway", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	// Verify the counter is visible through the underlying Prometheus registry.
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_counter",
		Help: "A test counter",
	})

	require.NoError(t, registry.Register("gateway", "dup_counter", counter))
	assert.Error(t, registry.Register("gateway", "dup_counter", counter))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "removable_gauge",
		Help: "A test gauge",
	})

	require.NoError(t, registry.Register("bridge", "removable_gauge", gauge))
	assert.True(t, registry.Unregister("bridge", "removable_gauge"))

	// Second removal is a no-op.
	assert.False(t, registry.Unregister("bridge", "removable_gauge"))

	// The name is free again after removal.
	assert.NoError(t, registry.Register("bridge", "removable_gauge", gauge))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", n),
				Help: "A test counter",
			})
			assert.NoError(t, registry.Register("worker", fmt.Sprintf("counter_%d", n), counter))
		}(i)
	}
	wg.Wait()
}

func TestCoreMetrics_Usable(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.ResolutionsTotal.WithLabelValues("success").Inc()
	core.InvocationsTotal.WithLabelValues("sim-1", "tags.read.snapshot", "ok").Inc()
	core.StreamsTruncated.WithLabelValues("sim-1", "tags.read.raw").Inc()
	core.NATSConnected.Set(1)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}
