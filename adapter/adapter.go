package adapter

import (
	"context"
	"time"

	"github.com/c360/adapterkit/health"
)

// Descriptor holds the identity and human-readable metadata of an adapter.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Adapter is an independently pluggable data source. Implementations own
// their internal concurrency; the host assumes nothing about it and reads
// lifecycle state through the atomic accessors.
type Adapter interface {
	// Descriptor returns the adapter's identity metadata.
	Descriptor() Descriptor

	// Start begins adapter operation. The context covers startup only;
	// long-running producer work is owned by the adapter.
	Start(ctx context.Context) error

	// Stop gracefully stops the adapter within the timeout.
	Stop(timeout time.Duration) error

	// IsEnabled reports whether the adapter is administratively enabled.
	IsEnabled() bool

	// IsRunning reports whether the adapter is started and operational.
	IsRunning() bool

	// Features returns the adapter's advertised feature set.
	Features() *FeatureSet
}

// HealthChecker is implemented by adapters that report health status.
type HealthChecker interface {
	Health() health.Status
}
