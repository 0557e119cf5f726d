// Package tlsutil builds crypto/tls configurations for the gateway
// listener and outbound broker connections from declarative config.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/adapterkit/errors"
)

// ServerConfig holds TLS settings for the HTTP gateway listener.
type ServerConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	CertFile   string `yaml:"cert_file" json:"cert_file"`
	KeyFile    string `yaml:"key_file" json:"key_file"`
	MinVersion string `yaml:"min_version" json:"min_version"` // "1.2" or "1.3"

	MTLS MTLSConfig `yaml:"mtls" json:"mtls"`
}

// MTLSConfig holds client-certificate validation settings for servers.
type MTLSConfig struct {
	Enabled           bool     `yaml:"enabled" json:"enabled"`
	ClientCAFiles     []string `yaml:"client_ca_files" json:"client_ca_files"`
	RequireClientCert bool     `yaml:"require_client_cert" json:"require_client_cert"`
	AllowedClientCNs  []string `yaml:"allowed_client_cns" json:"allowed_client_cns"`
}

// ClientConfig holds TLS settings for outbound connections. The system CA
// bundle is always trusted; CAFiles add to it.
type ClientConfig struct {
	Enabled            bool     `yaml:"enabled" json:"enabled"`
	CAFiles            []string `yaml:"ca_files" json:"ca_files"`
	CertFile           string   `yaml:"cert_file" json:"cert_file"`
	KeyFile            string   `yaml:"key_file" json:"key_file"`
	MinVersion         string   `yaml:"min_version" json:"min_version"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// LoadServerConfig creates a tls.Config for the gateway listener. Returns
// nil when TLS is disabled.
func LoadServerConfig(cfg ServerConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "LoadServerConfig", "load certificate")
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   parseTLSVersion(cfg.MinVersion),
	}

	if cfg.MTLS.Enabled {
		if err := applyMTLS(tlsConfig, cfg.MTLS); err != nil {
			return nil, err
		}
	}
	return tlsConfig, nil
}

// LoadClientConfig creates a tls.Config for outbound connections. Returns
// nil when TLS is disabled.
func LoadClientConfig(cfg ClientConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	for _, caFile := range cfg.CAFiles {
		if err := appendCA(rootCAs, caFile); err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientConfig", "load CA bundle")
		}
	}
	tlsConfig.RootCAs = rootCAs

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	// Intentional via config; operators own the tradeoff.
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}
	return tlsConfig, nil
}

func applyMTLS(tlsConfig *tls.Config, cfg MTLSConfig) error {
	clientCAs := x509.NewCertPool()
	for _, caFile := range cfg.ClientCAFiles {
		if err := appendCA(clientCAs, caFile); err != nil {
			return errors.WrapFatal(err, "tlsutil", "applyMTLS", "load client CA")
		}
	}
	tlsConfig.ClientCAs = clientCAs

	if cfg.RequireClientCert {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	} else {
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}

	if len(cfg.AllowedClientCNs) > 0 {
		allowed := cfg.AllowedClientCNs
		tlsConfig.VerifyPeerCertificate = func(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
			return verifyAllowedCN(verifiedChains, allowed)
		}
	}
	return nil
}

func appendCA(pool *x509.CertPool, caFile string) error {
	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return fmt.Errorf("read CA file %s: %w", caFile, err)
	}
	if !pool.AppendCertsFromPEM(caPEM) {
		return fmt.Errorf("no valid PEM certificates in %s", caFile)
	}
	return nil
}

func verifyAllowedCN(chains [][]*x509.Certificate, allowedCNs []string) error {
	if len(chains) == 0 {
		return fmt.Errorf("no verified certificate chains")
	}
	leaf := chains[0][0]
	for _, cn := range allowedCNs {
		if leaf.Subject.CommonName == cn {
			return nil
		}
	}
	return fmt.Errorf("client certificate CN %q not in allowed list", leaf.Subject.CommonName)
}

// parseTLSVersion converts a version string to the crypto/tls constant.
// Empty or unknown values default to TLS 1.2.
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	case "1.2":
		return tls.VersionTLS12
	default:
		return tls.VersionTLS12
	}
}
