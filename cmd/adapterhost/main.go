// Package main implements the adapter host entry point. The host loads
// configuration, starts the configured simulator adapters, and exposes
// them through the HTTP gateway, the Prometheus endpoint, and the
// optional NATS snapshot bridge.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/adapterkit/adapter"
	bridgenats "github.com/c360/adapterkit/bridge/nats"
	"github.com/c360/adapterkit/config"
	"github.com/c360/adapterkit/extension"
	gatewayhttp "github.com/c360/adapterkit/gateway/http"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/natsclient"
	"github.com/c360/adapterkit/pkg/retry"
	"github.com/c360/adapterkit/pkg/tlsutil"
	"github.com/c360/adapterkit/pkg/worker"
	"github.com/c360/adapterkit/resolver"
	"github.com/c360/adapterkit/simulator"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "adapterhost"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.NewLoader(cliCfg.ConfigPath).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI log settings win over the file so operators can turn on debug
	// output without editing config.
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	slog.Info("Starting adapter host",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	host, err := buildHost(cfg, logger)
	if err != nil {
		return err
	}
	return host.run(cliCfg.ShutdownTimeout)
}

// host holds the wired components for startup and shutdown.
type host struct {
	cfg    *config.Config
	logger *slog.Logger

	registry   *adapter.Registry
	adapters   []*simulator.Adapter
	runner     *worker.Runner
	gateway    *gatewayhttp.Gateway
	httpServer *http.Server
	metrics    *metric.Server
	nats       *natsclient.Client
	bridge     *bridgenats.Bridge
}

// buildHost wires every component from configuration. Nothing is started
// yet; run owns the lifecycle.
func buildHost(cfg *config.Config, logger *slog.Logger) (*host, error) {
	metricsRegistry := metric.NewMetricsRegistry()
	core := metricsRegistry.CoreMetrics()

	registry := adapter.NewRegistry()
	adapters := make([]*simulator.Adapter, 0, len(cfg.Simulators))
	for _, simCfg := range cfg.Simulators {
		sim, err := simulator.New(simCfg, adapter.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create simulator %s: %w", simCfg.ID, err)
		}
		if err := registry.Register(sim); err != nil {
			return nil, fmt.Errorf("register simulator %s: %w", simCfg.ID, err)
		}
		adapters = append(adapters, sim)
	}

	res := resolver.New(registry,
		resolver.WithLogger(logger),
		resolver.WithMetrics(core))
	invoker := extension.NewInvoker(res,
		extension.WithLogger(logger),
		extension.WithMetrics(core))
	runner := worker.NewRunner(0)

	gateway, err := gatewayhttp.NewGateway(cfg.Gateway.HTTP, gatewayhttp.Dependencies{
		Registry: registry,
		Resolver: res,
		Invoker:  invoker,
		Runner:   runner,
		Logger:   logger,
		Metrics:  core,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	mux := http.NewServeMux()
	gateway.RegisterHTTPHandlers(cfg.Gateway.Prefix, mux)
	serverTLS, err := tlsutil.LoadServerConfig(cfg.Gateway.TLS)
	if err != nil {
		return nil, fmt.Errorf("gateway TLS: %w", err)
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:           mux,
		TLSConfig:         serverTLS,
		ReadHeaderTimeout: 10 * time.Second,
	}

	h := &host{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		adapters:   adapters,
		runner:     runner,
		gateway:    gateway,
		httpServer: httpServer,
		metrics:    metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry),
	}

	if cfg.NATS.Enabled {
		clientTLS, err := tlsutil.LoadClientConfig(cfg.NATS.TLS)
		if err != nil {
			return nil, fmt.Errorf("NATS TLS: %w", err)
		}
		natsOpts := []natsclient.ClientOption{
			natsclient.WithClientName(cfg.NATS.Name),
			natsclient.WithLogger(logger),
			natsclient.WithMetrics(core),
			natsclient.WithTimeout(cfg.NATS.Timeout),
		}
		if clientTLS != nil {
			natsOpts = append(natsOpts, natsclient.WithTLS(clientTLS))
		}
		nc, err := natsclient.NewClient(cfg.NATS.URL, natsOpts...)
		if err != nil {
			return nil, fmt.Errorf("create NATS client: %w", err)
		}
		h.nats = nc

		if cfg.Bridge.Enabled {
			bridge, err := bridgenats.New(cfg.Bridge.NATS, res, nc,
				bridgenats.WithLogger(logger),
				bridgenats.WithMetrics(core),
				bridgenats.WithMetricsRegistry(metricsRegistry))
			if err != nil {
				return nil, fmt.Errorf("create bridge: %w", err)
			}
			h.bridge = bridge
		}
	}

	return h, nil
}

// run starts every component, waits for a shutdown signal, then stops
// them in reverse order.
func (h *host) run(shutdownTimeout time.Duration) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, sim := range h.adapters {
		if err := sim.Start(ctx); err != nil {
			return fmt.Errorf("start adapter %s: %w", sim.Descriptor().ID, err)
		}
		slog.Info("Adapter started", "adapter", sim.Descriptor().ID)
	}

	if err := h.gateway.Start(ctx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	if h.nats != nil {
		// NATS often comes up after the host under systemd or compose;
		// retry briefly before giving up.
		err := retry.Do(ctx, retry.Quick(), func() error {
			return h.nats.Connect(ctx)
		})
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		if h.bridge != nil {
			if err := h.bridge.Start(ctx); err != nil {
				return fmt.Errorf("start bridge: %w", err)
			}
		}
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("HTTP gateway listening", "addr", h.httpServer.Addr, "tls", h.httpServer.TLSConfig != nil)
		var err error
		if h.httpServer.TLSConfig != nil {
			// Certificates come from TLSConfig; no file paths needed.
			err = h.httpServer.ListenAndServeTLS("", "")
		} else {
			err = h.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		slog.Info("Metrics endpoint listening", "addr", h.metrics.Address())
		if err := h.metrics.Start(); err != nil {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-errCh:
		slog.Error("Server failed, shutting down", "error", err)
	}

	return h.shutdown(shutdownTimeout)
}

// shutdown stops components in reverse start order: stop accepting
// requests, stop the push bridge, drain NATS, stop adapters.
func (h *host) shutdown(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	record := func(stage string, err error) {
		if err != nil {
			slog.Error("Shutdown stage failed", "stage", stage, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", stage, err)
			}
		}
	}

	record("http server", h.httpServer.Shutdown(shutdownCtx))
	record("gateway", h.gateway.Stop(timeout))

	if h.bridge != nil {
		record("bridge", h.bridge.Stop(timeout))
	}
	if h.nats != nil {
		record("nats", h.nats.Close())
	}

	record("runner", h.runner.Stop(timeout))

	for _, sim := range h.adapters {
		record("adapter "+sim.Descriptor().ID, sim.Stop(timeout))
	}

	record("metrics server", h.metrics.Stop())

	if firstErr == nil {
		slog.Info("Adapter host shutdown complete")
	}
	return firstErr
}
