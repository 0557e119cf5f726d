package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
)

// Handler executes one invoke operation. The body has already passed
// schema validation when the handler runs.
type Handler func(ctx context.Context, body json.RawMessage) (json.RawMessage, error)

// Extension is the handle shape the Invoker expects from a resolved
// extension feature.
type Extension interface {
	adapter.ExtensionFeature
	Descriptor() FeatureDescriptor
	Invoke(ctx context.Context, operationURI string, body json.RawMessage) (json.RawMessage, error)
}

// OperationURI builds the URI for a named operation under a feature
// namespace: <featureURI>ops/<name>/.
func OperationURI(featureURI, name string) (string, error) {
	normalized, err := adapter.NormalizeFeatureURI(featureURI)
	if err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, "/?#") {
		return "", errors.WrapInvalid(
			fmt.Errorf("invalid operation name %q", name),
			"Extension", "OperationURI", "validate name")
	}
	return normalized + "ops/" + name + "/", nil
}

type operation struct {
	descriptor OperationDescriptor
	handler    Handler
}

// Feature is a registry-backed Extension implementation that adapters
// embed or compose. Operations are bound once during adapter setup and
// then read concurrently.
type Feature struct {
	uri         string
	name        string
	description string

	mu  sync.RWMutex
	ops map[string]*operation
}

// NewFeature creates an extension feature rooted at the given absolute
// URI. The URI is normalized to a trailing path separator.
func NewFeature(uri, name, description string) (*Feature, error) {
	normalized, err := adapter.NormalizeFeatureURI(uri)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Feature", "NewFeature", "normalize feature uri")
	}
	return &Feature{
		uri:         normalized,
		name:        name,
		description: description,
		ops:         make(map[string]*operation),
	}, nil
}

// FeatureURI returns the normalized feature namespace URI.
func (f *Feature) FeatureURI() string {
	return f.uri
}

// BindInvoke registers an invoke operation under the feature namespace.
// inputSchema and outputSchema are JSON schema documents; inputSchema may
// be nil for operations without validated input.
func (f *Feature) BindInvoke(name, description string, inputSchema, outputSchema json.RawMessage, handler Handler) error {
	if handler == nil {
		return errors.WrapInvalid(
			fmt.Errorf("nil handler for operation %q", name),
			"Feature", "BindInvoke", "validate handler")
	}
	opURI, err := OperationURI(f.uri, name)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.ops[opURI]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("operation %s already bound", opURI),
			"Feature", "BindInvoke", "duplicate operation")
	}
	f.ops[opURI] = &operation{
		descriptor: OperationDescriptor{
			OperationID:   opURI,
			OperationType: OperationInvoke,
			Name:          name,
			Description:   description,
			InputSchema:   inputSchema,
			OutputSchema:  outputSchema,
		},
		handler: handler,
	}
	return nil
}

// Descriptor returns the discovery document with operations ordered by
// URI.
func (f *Feature) Descriptor() FeatureDescriptor {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ops := make([]OperationDescriptor, 0, len(f.ops))
	for _, op := range f.ops {
		ops = append(ops, op.descriptor)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].OperationID < ops[j].OperationID
	})

	return FeatureDescriptor{
		URI:         f.uri,
		Name:        f.name,
		Description: f.description,
		Operations:  ops,
	}
}

// Invoke dispatches the operation with the given URI. The Invoker
// validates the body first; calling Invoke directly bypasses validation.
func (f *Feature) Invoke(ctx context.Context, operationURI string, body json.RawMessage) (json.RawMessage, error) {
	normalized, err := adapter.NormalizeFeatureURI(operationURI)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Feature", "Invoke", "normalize operation uri")
	}

	f.mu.RLock()
	op, ok := f.ops[normalized]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.ErrOperationNotFound
	}
	return op.handler(ctx, body)
}
