package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/extension"
	"github.com/c360/adapterkit/pipeline"
	"github.com/c360/adapterkit/resolver"
)

// listResponse is the shared shape for buffered result sets.
type listResponse[T any] struct {
	Items      []T  `json:"items"`
	Incomplete bool `json:"incomplete,omitempty"`
}

// setTruncation mirrors the marker into the reserved response header and
// the body flag.
func setTruncation[T any](w http.ResponseWriter, resp *listResponse[T], marker pipeline.Truncation) {
	if marker.Incomplete {
		w.Header().Set(IncompleteReasonHeader, marker.Reason)
		resp.Incomplete = true
	}
}

func (g *Gateway) handleFindAdapters(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	req := &adapter.FindAdaptersRequest{Name: query.Get("name")}
	if v := query.Get("page_size"); v != "" {
		req.PageSize, _ = strconv.Atoi(v)
	}
	if v := query.Get("page"); v != "" {
		req.Page, _ = strconv.Atoi(v)
	}

	descriptors := g.registry.FindAdapters(r.Context(), req)
	return g.writeJSON(w, listResponse[adapter.Descriptor]{Items: descriptors})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) error {
	a, ok := g.registry.GetAdapter(r.Context(), r.PathValue("id"))
	if !ok {
		return errors.ErrAdapterNotFound
	}

	checker, ok := a.(adapter.HealthChecker)
	if !ok {
		return errors.ErrFeatureUnsupported
	}
	return g.writeJSON(w, checker.Health())
}

func (g *Gateway) handleSearchTags(w http.ResponseWriter, r *http.Request) error {
	var req adapter.SearchTagsRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	searcher, err := resolver.ResolveFeature[adapter.TagSearcher](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureTagSearch)
	if err != nil {
		return err
	}

	s, err := searcher.SearchTags(r.Context(), &req)
	if err != nil {
		return err
	}

	items, marker, err := pipeline.ReadBuffered(r.Context(), s, adapter.MaxTagSearchResults)
	if err != nil {
		return err
	}

	resp := listResponse[adapter.TagDefinition]{Items: items}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

func (g *Gateway) handleReadSnapshot(w http.ResponseWriter, r *http.Request) error {
	var req adapter.ReadSnapshotRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	reader, err := resolver.ResolveFeature[adapter.SnapshotReader](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureReadSnapshot)
	if err != nil {
		return err
	}

	s, err := reader.ReadSnapshot(r.Context(), &req)
	if err != nil {
		return err
	}

	items, marker, err := pipeline.ReadBuffered(r.Context(), s, adapter.MaxSnapshotValues)
	if err != nil {
		return err
	}

	resp := listResponse[adapter.TagValue]{Items: items}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

func (g *Gateway) handleReadRaw(w http.ResponseWriter, r *http.Request) error {
	var req adapter.ReadRawRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	reader, err := resolver.ResolveFeature[adapter.RawReader](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureReadRaw)
	if err != nil {
		return err
	}

	s, err := reader.ReadRaw(r.Context(), &req)
	if err != nil {
		return err
	}

	items, marker, err := pipeline.ReadBuffered(r.Context(), s, adapter.MaxRawSamples)
	if err != nil {
		return err
	}

	resp := listResponse[adapter.TagValue]{Items: items}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

func (g *Gateway) handleReadAnnotations(w http.ResponseWriter, r *http.Request) error {
	var req adapter.ReadAnnotationsRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	reader, err := resolver.ResolveFeature[adapter.AnnotationReader](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureReadAnnotations)
	if err != nil {
		return err
	}

	s, err := reader.ReadAnnotations(r.Context(), &req)
	if err != nil {
		return err
	}

	items, marker, err := pipeline.ReadBuffered(r.Context(), s, adapter.MaxAnnotations)
	if err != nil {
		return err
	}

	resp := listResponse[adapter.Annotation]{Items: items}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

func (g *Gateway) handleReadEvents(w http.ResponseWriter, r *http.Request) error {
	var req adapter.ReadEventsRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	reader, err := resolver.ResolveFeature[adapter.EventReader](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureReadEvents)
	if err != nil {
		return err
	}

	s, err := reader.ReadEvents(r.Context(), &req)
	if err != nil {
		return err
	}

	items, marker, err := pipeline.ReadBuffered(r.Context(), s, adapter.MaxEventMessages)
	if err != nil {
		return err
	}

	resp := listResponse[adapter.EventMessage]{Items: items}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

func (g *Gateway) handleBrowseAssets(w http.ResponseWriter, r *http.Request) error {
	var req adapter.BrowseAssetsRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	browser, err := resolver.ResolveFeature[adapter.AssetBrowser](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureBrowseAssets)
	if err != nil {
		return err
	}

	s, err := browser.BrowseAssets(r.Context(), &req)
	if err != nil {
		return err
	}

	items, marker, err := pipeline.ReadBuffered(r.Context(), s, adapter.BufferLimit(adapter.FeatureBrowseAssets))
	if err != nil {
		return err
	}

	resp := listResponse[adapter.AssetNode]{Items: items}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

type writeRequest struct {
	Values []adapter.WriteValueItem `json:"values"`
}

func (g *Gateway) handleWriteValues(w http.ResponseWriter, r *http.Request) error {
	var req writeRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	writer, err := resolver.ResolveFeature[adapter.ValueWriter](
		r.Context(), g.resolver, r.PathValue("id"), adapter.FeatureWriteValues)
	if err != nil {
		return err
	}

	acks, marker, err := pipeline.Write(r.Context(), g.runner, req.Values,
		writer.MaxWriteSize(), writer.WriteValues)
	if err != nil {
		return err
	}

	resp := listResponse[adapter.WriteResult]{Items: acks}
	setTruncation(w, &resp, marker)
	return g.writeJSON(w, resp)
}

// featureURIParam extracts and validates the uri query parameter.
func featureURIParam(query url.Values) (string, error) {
	uri := query.Get("uri")
	if uri == "" {
		return "", errors.WrapInvalid(
			errors.ErrMissingConfig,
			"Gateway", "featureURIParam", "uri query parameter is required")
	}
	return uri, nil
}

func (g *Gateway) handleExtensionDescriptor(w http.ResponseWriter, r *http.Request) error {
	uri, err := featureURIParam(r.URL.Query())
	if err != nil {
		return err
	}

	descriptor, err := g.invoker.GetDescriptor(r.Context(), r.PathValue("id"), uri)
	if err != nil {
		return err
	}
	return g.writeJSON(w, descriptor)
}

func (g *Gateway) handleExtensionOperations(w http.ResponseWriter, r *http.Request) error {
	uri, err := featureURIParam(r.URL.Query())
	if err != nil {
		return err
	}

	ops, err := g.invoker.GetOperations(r.Context(), r.PathValue("id"), uri)
	if err != nil {
		return err
	}
	return g.writeJSON(w, listResponse[extension.OperationDescriptor]{Items: ops})
}

func (g *Gateway) handleInvokeOperation(w http.ResponseWriter, r *http.Request) error {
	var req extension.InvocationRequest
	if err := g.readBody(r, &req); err != nil {
		return err
	}

	resp, err := g.invoker.InvokeOperation(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		return err
	}
	return g.writeJSON(w, resp)
}
