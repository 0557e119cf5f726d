package extension

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/pkg/cache"
	"github.com/c360/adapterkit/resolver"
)

// FieldError reports one schema violation against a named field.
type FieldError struct {
	Field       string `json:"Field"`
	Description string `json:"Description"`
}

// ValidationError carries the field-level schema violations for a
// rejected invocation body. It unwraps to errors.ErrSchemaInvalid.
type ValidationError struct {
	OperationID string
	Fields      []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invocation body for %s failed schema validation:", e.OperationID)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "\n  - %s: %s", f.Field, f.Description)
	}
	return b.String()
}

// Unwrap returns the schema-validation sentinel.
func (e *ValidationError) Unwrap() error {
	return errors.ErrSchemaInvalid
}

// Invoker discovers and invokes extension operations. Every call resolves
// the owning feature through the resolver, so registry, lifecycle, and
// authorization changes apply immediately.
type Invoker struct {
	resolver *resolver.Resolver
	logger   *slog.Logger
	metrics  *metric.Metrics

	// schemas caches compiled input schemas per operation URI. Schemas
	// are fixed at bind time, so entries never go stale.
	schemas *cache.LRU[*gojsonschema.Schema]
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// WithMetrics records invocation counts and durations on the host metrics.
func WithMetrics(m *metric.Metrics) InvokerOption {
	return func(i *Invoker) {
		i.metrics = m
	}
}

// NewInvoker creates an Invoker over the given resolver.
func NewInvoker(r *resolver.Resolver, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		resolver: r,
		logger:   slog.Default().With("component", "extension"),
		schemas:  cache.NewLRU[*gojsonschema.Schema](256),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// GetDescriptor returns the discovery document for the extension feature
// at featureURI on the given adapter.
func (i *Invoker) GetDescriptor(ctx context.Context, adapterID, featureURI string) (*FeatureDescriptor, error) {
	ext, err := i.resolveExtension(ctx, adapterID, featureURI)
	if err != nil {
		return nil, err
	}
	descriptor := ext.Descriptor()
	return &descriptor, nil
}

// GetOperations returns the feature's invoke operations. Stream and
// duplex operations are excluded; the invocation contract covers unary
// operations only.
func (i *Invoker) GetOperations(ctx context.Context, adapterID, featureURI string) ([]OperationDescriptor, error) {
	ext, err := i.resolveExtension(ctx, adapterID, featureURI)
	if err != nil {
		return nil, err
	}

	all := ext.Descriptor().Operations
	ops := make([]OperationDescriptor, 0, len(all))
	for _, op := range all {
		if op.OperationType == OperationInvoke {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// InvokeOperation validates and dispatches one invoke operation. The
// owning feature URI is derived from the operation URI by longest
// registered prefix during resolution. The body is validated against the
// operation's input schema before dispatch; on violation the handler is
// never invoked and a *ValidationError is returned.
//
// Handler failures are folded into the response envelope, except security
// violations and cancellation, which propagate as errors.
func (i *Invoker) InvokeOperation(ctx context.Context, adapterID string, req *InvocationRequest) (*InvocationResponse, error) {
	if req == nil || req.OperationID == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("missing operation id"),
			"Invoker", "InvokeOperation", "validate request")
	}

	operationURI, err := adapter.NormalizeFeatureURI(req.OperationID)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Invoker", "InvokeOperation", "normalize operation uri")
	}

	ext, err := i.resolveExtension(ctx, adapterID, operationURI)
	if err != nil {
		return nil, err
	}

	op, ok := findOperation(ext.Descriptor().Operations, operationURI)
	if !ok || op.OperationType != OperationInvoke {
		return nil, errors.ErrOperationNotFound
	}

	if err := i.validateBody(op, req.Body); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := ext.Invoke(ctx, operationURI, req.Body)
	i.observe(adapterID, operationURI, start, err)
	if err != nil {
		if errors.IsCancellation(err) {
			return nil, err
		}
		if stderrors.Is(err, errors.ErrSecurityViolation) {
			return nil, errors.ErrFeatureForbidden
		}
		if stderrors.Is(err, errors.ErrOperationNotFound) {
			return nil, err
		}
		i.logger.Warn("operation handler failed",
			"adapter", adapterID,
			"operation", operationURI,
			"error", err)
		return &InvocationResponse{Success: false, Error: err.Error()}, nil
	}

	return &InvocationResponse{Success: true, Result: result}, nil
}

// resolveExtension resolves a feature or operation URI to its owning
// extension handle.
func (i *Invoker) resolveExtension(ctx context.Context, adapterID, uri string) (Extension, error) {
	rf, err := i.resolver.Resolve(ctx, adapterID, uri)
	if err != nil {
		return nil, err
	}
	if outcome := rf.Err(); outcome != nil {
		return nil, outcome
	}

	ext, ok := rf.Feature.(Extension)
	if !ok {
		// The adapter registered an extension handle the invoker cannot
		// drive; callers see it as unsupported.
		return nil, errors.ErrFeatureUnsupported
	}
	return ext, nil
}

func (i *Invoker) observe(adapterID, operationURI string, start time.Time, err error) {
	if i.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.metrics.InvocationsTotal.WithLabelValues(adapterID, operationURI, status).Inc()
	i.metrics.InvocationDuration.WithLabelValues(adapterID, operationURI).Observe(time.Since(start).Seconds())
}

func findOperation(ops []OperationDescriptor, operationURI string) (OperationDescriptor, bool) {
	for _, op := range ops {
		if op.OperationID == operationURI {
			return op, true
		}
	}
	return OperationDescriptor{}, false
}

// validateBody checks the invocation body against the operation's input
// schema, collecting field-level errors.
func (i *Invoker) validateBody(op OperationDescriptor, body json.RawMessage) error {
	if len(op.InputSchema) == 0 {
		return nil
	}
	if len(body) == 0 {
		body = json.RawMessage("null")
	}

	schema, ok := i.schemas.Get(op.OperationID)
	if !ok {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(op.InputSchema))
		if err != nil {
			return errors.WrapInvalid(err, "Invoker", "InvokeOperation", "compile input schema")
		}
		i.schemas.Set(op.OperationID, compiled)
		schema = compiled
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.WrapInvalid(err, "Invoker", "InvokeOperation", "evaluate input schema")
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{OperationID: op.OperationID}
	for _, desc := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:       desc.Field(),
			Description: desc.Description(),
		})
	}
	return verr
}
