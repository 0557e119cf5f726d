// Package metric provides Prometheus metrics registration and exposure
// for the adapter host. It carries a set of core host metrics plus a
// registry that components use to register their own collectors.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all host-level metrics (not adapter-specific).
type Metrics struct {
	// Adapter lifecycle metrics.
	AdapterStatus     *prometheus.GaugeVec
	AdapterUptime     *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec

	// Feature invocation metrics.
	ResolutionsTotal   *prometheus.CounterVec
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec

	// Streaming metrics.
	StreamItemsTotal  *prometheus.CounterVec
	StreamsTruncated  *prometheus.CounterVec
	ActiveStreams     *prometheus.GaugeVec
	WriteItemsDropped *prometheus.CounterVec

	// NATS bridge metrics.
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
	NATSPublished  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all host metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AdapterStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "adapter",
				Name:      "status",
				Help:      "Adapter status (0=stopped, 1=running, 2=disabled)",
			},
			[]string{"adapter"},
		),

		AdapterUptime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "adapter",
				Name:      "uptime_seconds",
				Help:      "Seconds since the adapter started",
			},
			[]string{"adapter"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Health check status (0=unhealthy, 1=healthy, 2=degraded)",
			},
			[]string{"adapter"},
		),

		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "resolver",
				Name:      "resolutions_total",
				Help:      "Total number of feature resolutions by outcome",
			},
			[]string{"outcome"},
		),

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "features",
				Name:      "invocations_total",
				Help:      "Total number of feature invocations",
			},
			[]string{"adapter", "feature", "status"},
		),

		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "adapterkit",
				Subsystem: "features",
				Name:      "invocation_duration_seconds",
				Help:      "Feature invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"adapter", "feature"},
		),

		StreamItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "streams",
				Name:      "items_total",
				Help:      "Total number of items delivered on result streams",
			},
			[]string{"adapter", "feature"},
		),

		StreamsTruncated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "streams",
				Name:      "truncated_total",
				Help:      "Total number of result streams cut off at their item limit",
			},
			[]string{"adapter", "feature"},
		),

		ActiveStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "streams",
				Name:      "active",
				Help:      "Number of currently open result streams",
			},
			[]string{"adapter"},
		),

		WriteItemsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "writes",
				Name:      "items_dropped_total",
				Help:      "Total number of write items dropped at the ingress limit",
			},
			[]string{"adapter"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "nats",
				Name:      "rtt_seconds",
				Help:      "Round-trip time to the NATS server in seconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "nats",
				Name:      "published_total",
				Help:      "Total number of messages published to NATS",
			},
			[]string{"subject"},
		),
	}
}
