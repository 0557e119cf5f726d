// Package http exposes the adapter host over HTTP: adapter discovery,
// feature queries with buffered delivery, decoupled writes, extension
// invocation, and streamed delivery over websockets.
package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/extension"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/pipeline"
	"github.com/c360/adapterkit/resolver"
)

// IncompleteReasonHeader carries the truncation reason when buffered
// delivery stopped at its item limit.
const IncompleteReasonHeader = "X-Incomplete-Reason"

// Config configures the HTTP gateway.
type Config struct {
	// MaxRequestSize bounds request bodies in bytes.
	MaxRequestSize int64 `yaml:"max_request_size" json:"max_request_size"`

	// RateLimit is the sustained request rate per second; Burst is the
	// burst allowance. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`

	// RequestTimeout bounds one buffered request end to end.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// Validate applies defaults.
func (c *Config) Validate() error {
	if c.MaxRequestSize <= 0 {
		c.MaxRequestSize = 1 << 20
	}
	if c.Burst <= 0 {
		c.Burst = 100
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return nil
}

// Gateway is the HTTP binding over the resolver, pipeline, and invoker.
type Gateway struct {
	config   Config
	registry *adapter.Registry
	resolver *resolver.Resolver
	invoker  *extension.Invoker
	runner   pipeline.TaskRunner
	logger   *slog.Logger
	metrics  *metric.Metrics
	limiter  *rate.Limiter

	running atomic.Bool

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
}

// Dependencies carries the collaborators the gateway drives.
type Dependencies struct {
	Registry *adapter.Registry
	Resolver *resolver.Resolver
	Invoker  *extension.Invoker
	Runner   pipeline.TaskRunner
	Logger   *slog.Logger
	Metrics  *metric.Metrics
}

// NewGateway creates an HTTP gateway from configuration.
func NewGateway(config Config, deps Dependencies) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "NewGateway", "config validation")
	}
	if deps.Registry == nil || deps.Resolver == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"registry and resolver are required")
	}

	g := &Gateway{
		config:   config,
		registry: deps.Registry,
		resolver: deps.Resolver,
		invoker:  deps.Invoker,
		runner:   deps.Runner,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
	if g.logger == nil {
		g.logger = slog.Default().With("component", "http-gateway")
	}
	if config.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst)
	}
	return g, nil
}

// Start marks the gateway as accepting requests.
func (g *Gateway) Start(_ context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Gateway", "Start",
			"gateway already running")
	}
	return nil
}

// Stop marks the gateway as draining; in-flight requests finish normally.
func (g *Gateway) Stop(_ time.Duration) error {
	g.running.Store(false)
	return nil
}

// RegisterHTTPHandlers registers the gateway routes under prefix.
func (g *Gateway) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc("GET "+prefix+"adapters", g.wrap(g.handleFindAdapters))
	mux.HandleFunc("GET "+prefix+"adapters/{id}/health", g.wrap(g.handleHealth))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/tags/search", g.wrap(g.handleSearchTags))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/tags/snapshot", g.wrap(g.handleReadSnapshot))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/tags/raw", g.wrap(g.handleReadRaw))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/tags/annotations", g.wrap(g.handleReadAnnotations))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/events", g.wrap(g.handleReadEvents))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/assets/browse", g.wrap(g.handleBrowseAssets))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/tags/write", g.wrap(g.handleWriteValues))
	mux.HandleFunc("GET "+prefix+"adapters/{id}/extensions", g.wrap(g.handleExtensionDescriptor))
	mux.HandleFunc("GET "+prefix+"adapters/{id}/extensions/operations", g.wrap(g.handleExtensionOperations))
	mux.HandleFunc("POST "+prefix+"adapters/{id}/extensions/invoke", g.wrap(g.handleInvokeOperation))
	mux.HandleFunc("GET "+prefix+"adapters/{id}/stream/raw", g.handleStreamRaw)
}

// getOrGenerateRequestID extracts the request ID header or generates one
// for tracing.
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// wrap applies the cross-cutting request plumbing: lifecycle gate, rate
// limit, request ID, timeout, and failure accounting.
func (g *Gateway) wrap(h func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.requestsTotal.Add(1)

		requestID := getOrGenerateRequestID(r)
		w.Header().Set("X-Request-ID", requestID)

		if !g.running.Load() {
			g.writeError(w, http.StatusServiceUnavailable, "gateway is not running")
			g.requestsFailed.Add(1)
			return
		}
		if g.limiter != nil && !g.limiter.Allow() {
			g.writeError(w, http.StatusTooManyRequests, "request rate limit exceeded")
			g.requestsFailed.Add(1)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.config.RequestTimeout)
		defer cancel()

		if err := h(w, r.WithContext(ctx)); err != nil {
			g.requestsFailed.Add(1)
			status, message := g.mapError(err)
			g.logger.Warn("request failed",
				"request_id", requestID,
				"path", r.URL.Path,
				"status", status,
				"error", err)
			g.writeError(w, status, message)
		}
	}
}

// mapError chooses the protocol status for an error. Each resolution
// outcome gets a distinct status so callers can render distinct messages.
func (g *Gateway) mapError(err error) (int, string) {
	var verr *extension.ValidationError
	switch {
	case stderrors.Is(err, errors.ErrAdapterNotFound):
		return http.StatusNotFound, "adapter not found"
	case stderrors.Is(err, errors.ErrAdapterNotRunning):
		return http.StatusServiceUnavailable, "adapter is not running"
	case stderrors.Is(err, errors.ErrFeatureUnsupported):
		return http.StatusBadRequest, "feature not supported by adapter"
	case stderrors.Is(err, errors.ErrFeatureForbidden):
		return http.StatusForbidden, "feature access forbidden"
	case stderrors.Is(err, errors.ErrOperationNotFound):
		return http.StatusNotFound, "operation not found"
	case stderrors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.IsCancellation(err):
		return http.StatusRequestTimeout, "request cancelled"
	case errors.IsInvalid(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (g *Gateway) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, body any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(body)
}

// readBody decodes a JSON request body into v, enforcing the size limit.
func (g *Gateway) readBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()

	bodyReader := io.LimitReader(r.Body, g.config.MaxRequestSize+1)
	data, err := io.ReadAll(bodyReader)
	if err != nil {
		return errors.WrapInvalid(err, "Gateway", "readBody", "read request body")
	}
	if int64(len(data)) > g.config.MaxRequestSize {
		return errors.WrapInvalid(
			fmt.Errorf("request body exceeds maximum size of %d bytes", g.config.MaxRequestSize),
			"Gateway", "readBody", "size check")
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.WrapInvalid(err, "Gateway", "readBody", "decode request body")
	}
	return nil
}
