package adapter

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/c360/adapterkit/errors"
)

// FeatureID is the stable identifier of a standard feature.
type FeatureID string

// Standard feature identifiers.
const (
	FeatureTagSearch       FeatureID = "tags.search"
	FeatureReadSnapshot    FeatureID = "tags.read.snapshot"
	FeatureReadRaw         FeatureID = "tags.read.raw"
	FeatureReadAnnotations FeatureID = "tags.read.annotations"
	FeatureWriteValues     FeatureID = "tags.write"
	FeatureReadEvents      FeatureID = "events.read"
	FeatureBrowseAssets    FeatureID = "assets.browse"
)

// StandardFeatureIDs lists every standard feature identifier.
func StandardFeatureIDs() []FeatureID {
	return []FeatureID{
		FeatureTagSearch,
		FeatureReadSnapshot,
		FeatureReadRaw,
		FeatureReadAnnotations,
		FeatureWriteValues,
		FeatureReadEvents,
		FeatureBrowseAssets,
	}
}

// ExtensionFeature is the minimal contract for a custom, URI-identified
// capability outside the standard feature set. The extension package defines
// the full discovery and invocation surface on top of this.
type ExtensionFeature interface {
	// FeatureURI returns the feature's absolute URI namespace. The value
	// is normalized with NormalizeFeatureURI before registration.
	FeatureURI() string
}

// NormalizeFeatureURI validates that raw is an absolute URI and returns it
// with a trailing path separator. The separator guarantees that a feature
// name can never accidentally prefix-match a sibling: "https://x/foo/" is
// not a prefix of "https://x/foobar/ops/run/".
func NormalizeFeatureURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", errors.WrapInvalid(
			fmt.Errorf("feature uri %q is not an absolute URI", raw),
			"FeatureSet", "NormalizeFeatureURI", "uri validation")
	}
	s := u.String()
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s, nil
}

// FeatureSet holds the features an adapter advertises: standard feature
// handles keyed by identifier and extension features keyed by normalized
// URI. Registration happens during adapter construction; lookups afterwards
// are read-mostly.
type FeatureSet struct {
	mu         sync.RWMutex
	standard   map[FeatureID]any
	extensions map[string]ExtensionFeature
}

// NewFeatureSet creates an empty feature set.
func NewFeatureSet() *FeatureSet {
	return &FeatureSet{
		standard:   make(map[FeatureID]any),
		extensions: make(map[string]ExtensionFeature),
	}
}

// AddStandard registers a standard feature handle under its identifier.
func (fs *FeatureSet) AddStandard(id FeatureID, handle any) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "FeatureSet", "AddStandard", "feature id validation")
	}
	if handle == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "FeatureSet", "AddStandard", "handle validation")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.standard[id]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("feature %q is already registered", id),
			"FeatureSet", "AddStandard", "duplicate feature check")
	}
	fs.standard[id] = handle
	return nil
}

// AddExtension registers an extension feature under its normalized URI.
func (fs *FeatureSet) AddExtension(feature ExtensionFeature) error {
	if feature == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "FeatureSet", "AddExtension", "feature validation")
	}
	uri, err := NormalizeFeatureURI(feature.FeatureURI())
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.extensions[uri]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("extension feature %q is already registered", uri),
			"FeatureSet", "AddExtension", "duplicate feature check")
	}
	fs.extensions[uri] = feature
	return nil
}

// Standard returns the handle registered for a standard feature identifier.
func (fs *FeatureSet) Standard(id FeatureID) (any, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	handle, ok := fs.standard[id]
	return handle, ok
}

// Extension returns the extension feature registered under the exact
// normalized URI.
func (fs *FeatureSet) Extension(uri string) (ExtensionFeature, bool) {
	normalized, err := NormalizeFeatureURI(uri)
	if err != nil {
		return nil, false
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	feature, ok := fs.extensions[normalized]
	return feature, ok
}

// ExtensionForURI finds the extension feature whose normalized URI is a
// prefix of uri. When multiple features match, the longest registered
// prefix wins. Used to derive the owning feature of an operation URI.
func (fs *FeatureSet) ExtensionForURI(uri string) (ExtensionFeature, string, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var (
		best    ExtensionFeature
		bestURI string
	)
	for featureURI, feature := range fs.extensions {
		if strings.HasPrefix(uri, featureURI) && len(featureURI) > len(bestURI) {
			best = feature
			bestURI = featureURI
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best, bestURI, true
}

// Contains reports whether the identifier names a feature this set
// advertises: a standard identifier matched exactly, or an extension URI
// matched by normalized prefix.
func (fs *FeatureSet) Contains(identifier string) bool {
	fs.mu.RLock()
	if _, ok := fs.standard[FeatureID(identifier)]; ok {
		fs.mu.RUnlock()
		return true
	}
	fs.mu.RUnlock()

	if _, _, ok := fs.ExtensionForURI(identifier); ok {
		return true
	}
	// Bare feature URIs may arrive without the trailing separator.
	if normalized, err := NormalizeFeatureURI(identifier); err == nil {
		_, _, ok := fs.ExtensionForURI(normalized)
		return ok
	}
	return false
}

// StandardIDs returns the sorted standard feature identifiers.
func (fs *FeatureSet) StandardIDs() []FeatureID {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	ids := make([]FeatureID, 0, len(fs.standard))
	for id := range fs.standard {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ExtensionURIs returns the sorted normalized extension feature URIs.
func (fs *FeatureSet) ExtensionURIs() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	uris := make([]string, 0, len(fs.extensions))
	for uri := range fs.extensions {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
