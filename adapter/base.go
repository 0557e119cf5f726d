package adapter

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/health"
)

// BaseAdapter provides the lifecycle plumbing shared by adapter
// implementations: descriptor storage, enabled/running state through
// atomics, a structured logger, and uptime tracking. Concrete adapters
// embed it and register features on the embedded feature set.
type BaseAdapter struct {
	descriptor Descriptor
	features   *FeatureSet
	logger     *slog.Logger

	enabled   atomic.Bool
	running   atomic.Bool
	startTime atomic.Value // time.Time

	// Start/stop hooks supplied by the concrete adapter. Either may be nil.
	onStart func(ctx context.Context) error
	onStop  func(timeout time.Duration) error
}

// BaseOption configures a BaseAdapter.
type BaseOption func(*BaseAdapter)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *BaseAdapter) {
		b.logger = logger
	}
}

// WithStartHook runs fn during Start, before the adapter is marked running.
func WithStartHook(fn func(ctx context.Context) error) BaseOption {
	return func(b *BaseAdapter) {
		b.onStart = fn
	}
}

// WithStopHook runs fn during Stop, after the adapter is marked stopped.
func WithStopHook(fn func(timeout time.Duration) error) BaseOption {
	return func(b *BaseAdapter) {
		b.onStop = fn
	}
}

// NewBaseAdapter creates the shared adapter plumbing. Adapters start
// enabled and stopped.
func NewBaseAdapter(descriptor Descriptor, opts ...BaseOption) *BaseAdapter {
	b := &BaseAdapter{
		descriptor: descriptor,
		features:   NewFeatureSet(),
		logger:     slog.Default().With("adapter", descriptor.ID),
	}
	b.enabled.Store(true)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Descriptor returns the adapter's identity metadata.
func (b *BaseAdapter) Descriptor() Descriptor {
	return b.descriptor
}

// Features returns the adapter's feature set.
func (b *BaseAdapter) Features() *FeatureSet {
	return b.features
}

// Logger returns the adapter's structured logger.
func (b *BaseAdapter) Logger() *slog.Logger {
	return b.logger
}

// SetEnabled flips the administrative enabled flag.
func (b *BaseAdapter) SetEnabled(enabled bool) {
	b.enabled.Store(enabled)
}

// IsEnabled reports whether the adapter is administratively enabled.
func (b *BaseAdapter) IsEnabled() bool {
	return b.enabled.Load()
}

// IsRunning reports whether the adapter is started and operational.
func (b *BaseAdapter) IsRunning() bool {
	return b.running.Load()
}

// Start marks the adapter running after the start hook succeeds.
func (b *BaseAdapter) Start(ctx context.Context) error {
	if b.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Adapter", "Start", "lifecycle check")
	}
	if b.onStart != nil {
		if err := b.onStart(ctx); err != nil {
			return errors.Wrap(err, "Adapter", "Start", "start hook")
		}
	}
	b.startTime.Store(time.Now())
	b.running.Store(true)
	b.logger.Info("adapter started")
	return nil
}

// Stop marks the adapter stopped and runs the stop hook.
func (b *BaseAdapter) Stop(timeout time.Duration) error {
	if !b.running.Load() {
		return nil
	}
	b.running.Store(false)
	if b.onStop != nil {
		if err := b.onStop(timeout); err != nil {
			return errors.Wrap(err, "Adapter", "Stop", "stop hook")
		}
	}
	b.logger.Info("adapter stopped")
	return nil
}

// Uptime returns how long the adapter has been running, or zero when
// stopped.
func (b *BaseAdapter) Uptime() time.Duration {
	if !b.running.Load() {
		return 0
	}
	start, ok := b.startTime.Load().(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// Health reports a default health status derived from lifecycle state.
// Adapters with richer checks override this.
func (b *BaseAdapter) Health() health.Status {
	if !b.IsEnabled() {
		return health.DegradedStatus(b.descriptor.ID, "adapter is disabled")
	}
	if !b.IsRunning() {
		return health.UnhealthyStatus(b.descriptor.ID, "adapter is not running")
	}
	return health.HealthyStatus(b.descriptor.ID, "running").
		WithMetrics(&health.Metrics{Uptime: b.Uptime()})
}
