// Package resolver performs per-call feature resolution and authorization.
// Every feature call resolves its adapter and feature handle fresh; results
// are never cached, so registry and lifecycle changes take effect on the
// next call.
//
// Resolution runs four ordered stages, cheapest first, stopping at the
// first failure:
//
//  1. registry lookup (adapter exists and is visible to the caller)
//  2. liveness (adapter enabled and running)
//  3. capability (adapter implements the requested feature)
//  4. authorization (external policy allows the caller to use it)
//
// Each stage failure maps to a distinct typed outcome so transport
// bindings can tell "unknown adapter" from "known but stopped" from
// "running but incapable" from "capable but forbidden".
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/metric"
)

// AuthorizationService decides whether a caller may see an adapter and
// use its features. Implementations typically delegate to an external
// policy system; the zero-trust default used when no service is supplied
// allows everything.
type AuthorizationService interface {
	// AuthorizeAdapter reports whether the caller may interact with the
	// adapter at all.
	AuthorizeAdapter(ctx context.Context, descriptor adapter.Descriptor) (bool, error)

	// AuthorizeFeature reports whether the caller may use the named
	// feature. featureID is a standard identifier or a normalized
	// extension feature URI.
	AuthorizeFeature(ctx context.Context, descriptor adapter.Descriptor, featureID string) (bool, error)
}

// allowAll is the default authorization service.
type allowAll struct{}

func (allowAll) AuthorizeAdapter(context.Context, adapter.Descriptor) (bool, error) {
	return true, nil
}

func (allowAll) AuthorizeFeature(context.Context, adapter.Descriptor, string) (bool, error) {
	return true, nil
}

// ResolvedFeature is the outcome of a single resolution. The booleans
// record how far resolution progressed; Feature is non-nil only when all
// four stages passed.
type ResolvedFeature struct {
	AdapterResolved   bool
	AdapterRunning    bool
	FeatureResolved   bool
	FeatureAuthorized bool

	// Adapter is populated from stage 1 onward.
	Adapter adapter.Adapter

	// Feature is the resolved handle: the standard feature implementation
	// or the adapter.ExtensionFeature owning the requested URI. Nil unless
	// fully resolved and authorized.
	Feature any
}

// Err maps the outcome to its typed sentinel, or nil on full success.
func (rf *ResolvedFeature) Err() error {
	switch {
	case !rf.AdapterResolved:
		return errors.ErrAdapterNotFound
	case !rf.AdapterRunning:
		return errors.ErrAdapterNotRunning
	case !rf.FeatureResolved:
		return errors.ErrFeatureUnsupported
	case !rf.FeatureAuthorized:
		return errors.ErrFeatureForbidden
	default:
		return nil
	}
}

// Resolver resolves adapter features against a registry. It is stateless
// apart from its collaborators and safe for unbounded concurrent use.
type Resolver struct {
	registry *adapter.Registry
	auth     AuthorizationService
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAuthorization supplies the authorization service consulted in
// stage 4. Without it every caller is authorized.
func WithAuthorization(auth AuthorizationService) Option {
	return func(r *Resolver) {
		if auth != nil {
			r.auth = auth
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics records resolution outcomes on the host metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a Resolver over the given registry.
func New(registry *adapter.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		auth:     allowAll{},
		logger:   slog.Default().With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the four resolution stages for featureID on the adapter
// with the given id. featureID is either a standard feature identifier
// ("tags.read.snapshot") or an absolute extension URI, which may name an
// operation nested under a registered feature.
//
// The returned ResolvedFeature is always non-nil and records how far
// resolution progressed. The error return is non-nil only when a
// collaborator failed (for example the authorization service was
// unreachable); stage failures are reported through the outcome fields
// and ResolvedFeature.Err, not through the error return.
func (r *Resolver) Resolve(ctx context.Context, adapterID, featureID string) (*ResolvedFeature, error) {
	rf := &ResolvedFeature{}

	// Stage 1: registry lookup. The registry applies the caller
	// visibility filter, so a hidden adapter resolves as not found
	// rather than forbidden.
	a, ok := r.registry.GetAdapter(ctx, adapterID)
	if !ok {
		r.record("adapter_not_found")
		return rf, nil
	}
	rf.AdapterResolved = true
	rf.Adapter = a

	// Stage 2: liveness.
	if !a.IsEnabled() || !a.IsRunning() {
		r.record("adapter_not_running")
		return rf, nil
	}
	rf.AdapterRunning = true

	// Stage 3: capability.
	handle, ok := r.lookupFeature(a, featureID)
	if !ok {
		r.record("feature_unsupported")
		return rf, nil
	}
	rf.FeatureResolved = true

	// Stage 4: authorization. Only reached when the feature exists, so
	// the policy service is never consulted about features the adapter
	// cannot serve.
	descriptor := a.Descriptor()
	allowed, err := r.auth.AuthorizeAdapter(ctx, descriptor)
	if err != nil {
		r.record("authorization_error")
		return rf, errors.WrapTransient(err, "Resolver", "Resolve", "authorize adapter")
	}
	if allowed {
		allowed, err = r.auth.AuthorizeFeature(ctx, descriptor, featureID)
		if err != nil {
			r.record("authorization_error")
			return rf, errors.WrapTransient(err, "Resolver", "Resolve", "authorize feature")
		}
	}
	if !allowed {
		r.logger.Warn("feature access denied",
			"adapter", adapterID,
			"feature", featureID)
		r.record("feature_forbidden")
		return rf, nil
	}
	rf.FeatureAuthorized = true
	rf.Feature = handle

	r.record("success")
	return rf, nil
}

// lookupFeature finds the handle for featureID on the adapter. Extension
// URIs match by longest registered prefix so an operation URI resolves to
// its owning feature.
func (r *Resolver) lookupFeature(a adapter.Adapter, featureID string) (any, bool) {
	features := a.Features()
	if features == nil {
		return nil, false
	}
	if strings.Contains(featureID, "://") {
		if handle, _, ok := features.ExtensionForURI(featureID); ok {
			return handle, true
		}
		if handle, ok := features.Extension(featureID); ok {
			return handle, true
		}
		return nil, false
	}
	return features.Standard(adapter.FeatureID(featureID))
}

func (r *Resolver) record(outcome string) {
	if r.metrics != nil {
		r.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	}
}

// ResolveFeature resolves and extracts a typed feature handle in one
// step. On any stage failure or type mismatch the zero T is returned
// together with the outcome's sentinel error.
func ResolveFeature[T any](ctx context.Context, r *Resolver, adapterID string, featureID adapter.FeatureID) (T, error) {
	var zero T

	rf, err := r.Resolve(ctx, adapterID, string(featureID))
	if err != nil {
		return zero, err
	}
	if outcome := rf.Err(); outcome != nil {
		return zero, outcome
	}

	typed, ok := rf.Feature.(T)
	if !ok {
		// The adapter registered a handle of the wrong shape for this
		// identifier; callers see it as unsupported.
		return zero, errors.ErrFeatureUnsupported
	}
	return typed, nil
}
