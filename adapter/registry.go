package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/c360/adapterkit/errors"
)

// VisibilityFilter restricts which adapters a caller may see. A nil filter
// makes every adapter visible. The filter runs on every lookup so external
// policy can change without touching the registry.
type VisibilityFilter func(ctx context.Context, descriptor Descriptor) bool

// FindAdaptersRequest filters and pages an adapter listing.
type FindAdaptersRequest struct {
	Name     string `json:"name,omitempty"` // case-insensitive substring match
	PageSize int    `json:"page_size,omitempty"`
	Page     int    `json:"page,omitempty"` // 1-based
}

// DefaultPageSize bounds FindAdapters responses when the request does not.
const DefaultPageSize = 100

// Registry holds the adapters visible to the host. Mutation is rare and
// serialized; every read goes through an atomic copy-on-write snapshot so
// resolution never takes a lock.
type Registry struct {
	mu       sync.Mutex // serializes writers only
	snapshot atomic.Pointer[map[string]Adapter]
	filter   VisibilityFilter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithVisibilityFilter installs a caller visibility filter.
func WithVisibilityFilter(filter VisibilityFilter) RegistryOption {
	return func(r *Registry) {
		r.filter = filter
	}
}

// NewRegistry creates an empty adapter registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{}
	empty := make(map[string]Adapter)
	r.snapshot.Store(&empty)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "adapter validation")
	}
	id := a.Descriptor().ID
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "adapter id validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.snapshot.Load()
	if _, exists := current[id]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("adapter %q is already registered", id),
			"Registry", "Register", "duplicate adapter check")
	}

	next := make(map[string]Adapter, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[id] = a
	r.snapshot.Store(&next)
	return nil
}

// Unregister removes an adapter from the registry. Removing an unknown id
// is a no-op.
func (r *Registry) Unregister(id string) {
	if id == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.snapshot.Load()
	if _, exists := current[id]; !exists {
		return
	}

	next := make(map[string]Adapter, len(current)-1)
	for k, v := range current {
		if k != id {
			next[k] = v
		}
	}
	r.snapshot.Store(&next)
}

// GetAdapter returns the adapter with the given id if it is visible to the
// caller.
func (r *Registry) GetAdapter(ctx context.Context, id string) (Adapter, bool) {
	a, ok := (*r.snapshot.Load())[id]
	if !ok {
		return nil, false
	}
	if r.filter != nil && !r.filter(ctx, a.Descriptor()) {
		return nil, false
	}
	return a, true
}

// FindAdapters lists the visible adapters matching the request, ordered by
// id, paged by PageSize and Page.
func (r *Registry) FindAdapters(ctx context.Context, req *FindAdaptersRequest) []Descriptor {
	if req == nil {
		req = &FindAdaptersRequest{}
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	var matched []Descriptor
	for _, a := range *r.snapshot.Load() {
		d := a.Descriptor()
		if r.filter != nil && !r.filter(ctx, d) {
			continue
		}
		if req.Name != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(req.Name)) {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil
	}
	end := min(start+pageSize, len(matched))
	return matched[start:end]
}

// Len returns the number of registered adapters, ignoring visibility.
func (r *Registry) Len() int {
	return len(*r.snapshot.Load())
}

// GetFeature retrieves a typed standard feature handle from an adapter.
// It returns false when the adapter does not advertise the feature or the
// registered handle does not implement T.
func GetFeature[T any](a Adapter, id FeatureID) (T, bool) {
	var zero T
	if a == nil {
		return zero, false
	}
	handle, ok := a.Features().Standard(id)
	if !ok {
		return zero, false
	}
	typed, ok := handle.(T)
	return typed, ok
}
