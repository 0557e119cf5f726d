// Package config defines the host configuration, YAML loading with
// environment overrides, and thread-safe access for components that read
// configuration after startup.
package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bridgenats "github.com/c360/adapterkit/bridge/nats"
	"github.com/c360/adapterkit/errors"
	gatewayhttp "github.com/c360/adapterkit/gateway/http"
	"github.com/c360/adapterkit/pkg/tlsutil"
	"github.com/c360/adapterkit/simulator"
)

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// NATSConfig controls the optional NATS connection.
type NATSConfig struct {
	Enabled bool                 `yaml:"enabled" json:"enabled"`
	URL     string               `yaml:"url" json:"url"`
	Name    string               `yaml:"name" json:"name"`
	Timeout time.Duration        `yaml:"timeout" json:"timeout"`
	TLS     tlsutil.ClientConfig `yaml:"tls" json:"tls"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Port int    `yaml:"port" json:"port"`
	Path string `yaml:"path" json:"path"`
}

// GatewayConfig wraps the HTTP gateway settings with its listener.
type GatewayConfig struct {
	Port   int    `yaml:"port" json:"port"`
	Prefix string `yaml:"prefix" json:"prefix"`

	TLS  tlsutil.ServerConfig `yaml:"tls" json:"tls"`
	HTTP gatewayhttp.Config   `yaml:"http" json:"http"`
}

// BridgeConfig wraps the NATS snapshot bridge settings.
type BridgeConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	NATS    bridgenats.Config `yaml:"nats" json:"nats"`
}

// Config represents the complete host configuration.
type Config struct {
	Logging    LoggingConfig      `yaml:"logging" json:"logging"`
	NATS       NATSConfig         `yaml:"nats" json:"nats"`
	Metrics    MetricsConfig      `yaml:"metrics" json:"metrics"`
	Gateway    GatewayConfig      `yaml:"gateway" json:"gateway"`
	Bridge     BridgeConfig       `yaml:"bridge" json:"bridge"`
	Simulators []simulator.Config `yaml:"simulators" json:"simulators"`
}

// Default returns the configuration used when no file is supplied: one
// simulator adapter behind the gateway, metrics on, bridge off.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		NATS:    NATSConfig{URL: "nats://localhost:4222", Name: "adapterkit", Timeout: 5 * time.Second},
		Metrics: MetricsConfig{Port: 9090, Path: "/metrics"},
		Gateway: GatewayConfig{Port: 8080, Prefix: "/api/"},
		Simulators: []simulator.Config{
			simulator.DefaultConfig("sim-1"),
		},
	}
}

// Validate checks the configuration and applies defaults to nested
// sections.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log level %q", c.Logging.Level),
			"Config", "Validate", "check logging")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log format %q", c.Logging.Format),
			"Config", "Validate", "check logging")
	}

	if c.Gateway.Port <= 0 {
		c.Gateway.Port = 8080
	}
	if c.Gateway.Prefix == "" {
		c.Gateway.Prefix = "/api/"
	}
	if err := c.Gateway.HTTP.Validate(); err != nil {
		return err
	}

	if c.Metrics.Port <= 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "nats enabled without url")
	}
	if c.Bridge.Enabled {
		if !c.NATS.Enabled {
			return errors.WrapInvalid(
				fmt.Errorf("bridge requires nats.enabled"),
				"Config", "Validate", "check bridge")
		}
		if err := c.Bridge.NATS.Validate(); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(c.Simulators))
	for i := range c.Simulators {
		if err := c.Simulators[i].Validate(); err != nil {
			return err
		}
		if seen[c.Simulators[i].ID] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate simulator id %q", c.Simulators[i].ID),
				"Config", "Validate", "check simulators")
		}
		seen[c.Simulators[i].ID] = true
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// SafeConfig provides thread-safe access to configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(
			fmt.Errorf("config cannot be nil"),
			"SafeConfig", "Update", "validate input")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
