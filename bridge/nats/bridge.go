// Package nats pushes adapter snapshot values onto JetStream subjects so
// downstream consumers receive plant data without polling the gateway.
// Each configured adapter gets its own worker that periodically reads the
// snapshot feature in streamed mode; the values are published through a
// shared worker pool so a slow JetStream never stalls the snapshot reads.
package nats

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/pipeline"
	"github.com/c360/adapterkit/pkg/retry"
	"github.com/c360/adapterkit/pkg/worker"
	"github.com/c360/adapterkit/resolver"
)

// Publisher is the outbound contract the bridge needs; natsclient.Client
// satisfies it.
type Publisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// AdapterConfig selects the tags pushed for one adapter.
type AdapterConfig struct {
	ID   string   `yaml:"id" json:"id"`
	Tags []string `yaml:"tags" json:"tags"`
}

// Config configures the snapshot push bridge.
type Config struct {
	// SubjectPrefix roots the published subjects:
	// <prefix>.snapshot.<adapterID>.<tag>.
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`

	// Interval is the push period per adapter.
	Interval time.Duration `yaml:"interval" json:"interval"`

	Adapters []AdapterConfig `yaml:"adapters" json:"adapters"`

	// Retry governs publish retries before a value is dropped.
	Retry retry.Config `yaml:"retry" json:"retry"`

	// PublishWorkers and PublishQueue size the shared publish pool. When
	// the queue is full, values are dropped rather than blocking reads.
	PublishWorkers int `yaml:"publish_workers" json:"publish_workers"`
	PublishQueue   int `yaml:"publish_queue" json:"publish_queue"`
}

// Validate applies defaults.
func (c *Config) Validate() error {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "adapterkit"
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = retry.DefaultConfig()
	}
	if c.PublishWorkers <= 0 {
		c.PublishWorkers = 2
	}
	if c.PublishQueue <= 0 {
		c.PublishQueue = 256
	}
	if len(c.Adapters) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("at least one adapter is required"),
			"Bridge", "Validate", "check adapters")
	}
	for _, a := range c.Adapters {
		if a.ID == "" {
			return errors.WrapInvalid(
				fmt.Errorf("adapter entry with empty id"),
				"Bridge", "Validate", "check adapters")
		}
		if len(a.Tags) == 0 {
			return errors.WrapInvalid(
				fmt.Errorf("adapter %q has no tags", a.ID),
				"Bridge", "Validate", "check adapters")
		}
	}
	return nil
}

// publishItem is one value queued for publication.
type publishItem struct {
	adapterID string
	value     adapter.TagValue
}

// Bridge runs the snapshot push workers.
type Bridge struct {
	config    Config
	resolver  *resolver.Resolver
	publisher Publisher
	logger    *slog.Logger
	metrics   *metric.Metrics
	registry  *metric.MetricsRegistry

	pool   *worker.Pool[publishItem]
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a Bridge.
func New(config Config, res *resolver.Resolver, publisher Publisher, opts ...Option) (*Bridge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if res == nil || publisher == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Bridge", "New",
			"resolver and publisher are required")
	}

	b := &Bridge{
		config:    config,
		resolver:  res,
		publisher: publisher,
		logger:    slog.Default().With("component", "nats-bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics records published values on the host metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithMetricsRegistry exposes the publish pool's queue depth and drop
// counters on the host registry.
func WithMetricsRegistry(r *metric.MetricsRegistry) Option {
	return func(b *Bridge) {
		b.registry = r
	}
}

// Start launches one worker per configured adapter. It returns
// immediately; workers run until Stop or ctx cancellation.
func (b *Bridge) Start(ctx context.Context) error {
	if b.cancel != nil {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Bridge", "Start", "lifecycle check")
	}

	runCtx, cancel := context.WithCancel(ctx)

	var poolOpts []worker.Option[publishItem]
	if b.registry != nil {
		poolOpts = append(poolOpts,
			worker.WithMetricsRegistry[publishItem](b.registry, "bridge_publish"))
	}
	pool := worker.NewPool(b.config.PublishWorkers, b.config.PublishQueue, b.process, poolOpts...)
	if err := pool.Start(runCtx); err != nil {
		cancel()
		return errors.WrapFatal(err, "Bridge", "Start", "start publish pool")
	}
	b.pool = pool
	b.cancel = cancel

	group, groupCtx := errgroup.WithContext(runCtx)
	b.group = group
	for _, cfg := range b.config.Adapters {
		group.Go(func() error {
			b.runWorker(groupCtx, cfg)
			return nil
		})
	}
	return nil
}

// Stop cancels the workers and the publish pool and waits for them to
// exit. Values still queued for publication are dropped.
func (b *Bridge) Stop(timeout time.Duration) error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	err := b.group.Wait()
	if poolErr := b.pool.Stop(timeout); err == nil {
		err = poolErr
	}
	b.cancel = nil
	b.group = nil
	b.pool = nil
	return err
}

// runWorker pushes one adapter's snapshot on every tick. Failures are
// logged and retried on the next tick; a worker never kills its siblings.
func (b *Bridge) runWorker(ctx context.Context, cfg AdapterConfig) {
	logger := b.logger.With("adapter", cfg.ID)
	ticker := time.NewTicker(b.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.pushOnce(ctx, cfg); err != nil && ctx.Err() == nil {
				logger.Warn("snapshot push failed", "error", err)
			}
		}
	}
}

// pushOnce reads the adapter's snapshot in streamed mode and queues every
// value on the publish pool. A full queue drops the value; the next tick
// reads a fresh snapshot anyway.
func (b *Bridge) pushOnce(ctx context.Context, cfg AdapterConfig) error {
	reader, err := resolver.ResolveFeature[adapter.SnapshotReader](
		ctx, b.resolver, cfg.ID, adapter.FeatureReadSnapshot)
	if err != nil {
		return err
	}

	s, err := reader.ReadSnapshot(ctx, &adapter.ReadSnapshotRequest{Tags: cfg.Tags})
	if err != nil {
		return err
	}

	return pipeline.ReadStreamed(ctx, s, func(_ context.Context, value adapter.TagValue) error {
		err := b.pool.Submit(publishItem{adapterID: cfg.ID, value: value})
		if stderrors.Is(err, worker.ErrQueueFull) {
			b.logger.Warn("publish queue full, value dropped",
				"adapter", cfg.ID, "tag", value.TagID)
			return nil
		}
		return err
	})
}

// process publishes one queued value with retry. It runs on the pool's
// workers; failures after the final attempt are logged and the value is
// dropped.
func (b *Bridge) process(ctx context.Context, item publishItem) error {
	data, err := json.Marshal(item.value)
	if err != nil {
		return errors.WrapInvalid(err, "Bridge", "process", "encode value")
	}

	subject := b.Subject(item.adapterID, item.value.TagID)
	err = retry.Do(ctx, b.config.Retry, func() error {
		return b.publisher.PublishToStream(ctx, subject, data)
	})
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Warn("publish failed, value dropped",
				"adapter", item.adapterID, "tag", item.value.TagID, "error", err)
		}
		return err
	}

	if b.metrics != nil {
		b.metrics.StreamItemsTotal.WithLabelValues(item.adapterID, string(adapter.FeatureReadSnapshot)).Inc()
	}
	return nil
}

// Subject returns the publish subject for one adapter/tag pair. Token
// separators in the tag are flattened so a tag name cannot extend the
// subject hierarchy.
func (b *Bridge) Subject(adapterID, tagID string) string {
	return fmt.Sprintf("%s.snapshot.%s.%s",
		b.config.SubjectPrefix, sanitizeToken(adapterID), sanitizeToken(tagID))
}

func sanitizeToken(s string) string {
	replacer := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return replacer.Replace(s)
}
