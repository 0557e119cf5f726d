package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/adapterkit/errors"
)

// Loader reads configuration from an optional YAML file and applies
// environment overrides on top.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given file path. An empty path means
// defaults plus environment only.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load builds the effective configuration: defaults, then file, then
// environment, then validation.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load",
				fmt.Sprintf("read %s", l.path))
		}
		if err := unmarshalYAML(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load",
				fmt.Sprintf("parse %s", l.path))
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// durationKeys are the fields that accept Go duration strings ("30s",
// "5m") in YAML. The yaml package only decodes durations as integer
// nanoseconds, so these are converted before binding.
var durationKeys = map[string]bool{
	"timeout":         true,
	"request_timeout": true,
	"interval":        true,
	"initial_delay":   true,
	"max_delay":       true,
	"sample_every":    true,
	"period":          true,
}

// unmarshalYAML decodes data onto cfg, converting duration strings to
// nanoseconds first. The converted tree is bound through JSON, which
// shares field names with the YAML tags.
func unmarshalYAML(data []byte, cfg *Config) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	if err := convertDurations(tree); err != nil {
		return err
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, cfg)
}

func convertDurations(node any) error {
	switch n := node.(type) {
	case map[string]any:
		for key, value := range n {
			if s, ok := value.(string); ok && durationKeys[key] {
				d, err := time.ParseDuration(s)
				if err != nil {
					return fmt.Errorf("field %q: %w", key, err)
				}
				n[key] = d.Nanoseconds()
				continue
			}
			if err := convertDurations(value); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range n {
			if err := convertDurations(value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Environment variables recognized by applyEnv. Values override whatever
// the file set.
const (
	EnvLogLevel    = "ADAPTERKIT_LOG_LEVEL"
	EnvLogFormat   = "ADAPTERKIT_LOG_FORMAT"
	EnvNATSURL     = "ADAPTERKIT_NATS_URL"
	EnvNATSTimeout = "ADAPTERKIT_NATS_TIMEOUT"
	EnvMetricsPort = "ADAPTERKIT_METRICS_PORT"
	EnvGatewayPort = "ADAPTERKIT_GATEWAY_PORT"
)

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv(EnvNATSTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnv", EnvNATSTimeout)
		}
		cfg.NATS.Timeout = d
	}
	if v := os.Getenv(EnvMetricsPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnv", EnvMetricsPort)
		}
		cfg.Metrics.Port = port
	}
	if v := os.Getenv(EnvGatewayPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnv", EnvGatewayPort)
		}
		cfg.Gateway.Port = port
	}
	return nil
}
