package agent

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Config contains configuration for the agent server
type Config struct {
	Host     string // Listen address, empty for all interfaces
	Port     int    // Server port
	CertFile string // Server certificate file, enables TLS
	KeyFile  string // Server private key file
	CAFile   string // CA certificate file, enables client verification
}

// DefaultConfig returns default agent configuration
func DefaultConfig() Config {
	return Config{
		Port: 2223,
	}
}

// TLSEnabled reports whether the server serves HTTPS
func (c Config) TLSEnabled() bool {
	return c.CertFile != ""
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("certificate and key files must be given together")
	}

	if c.CAFile != "" && c.CertFile == "" {
		return fmt.Errorf("client verification requires a server certificate")
	}

	for _, f := range []string{c.CertFile, c.KeyFile, c.CAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("file not found: %s", f)
		}
	}

	return nil
}

// LoadTLSConfig creates TLS configuration from the agent config. With a CA
// file, clients must present a certificate signed by it.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}

	if c.CAFile != "" {
		pool, err := loadCertPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = pool
	}

	return tlsConfig, nil
}

// ClientConfig contains configuration for the agent client
type ClientConfig struct {
	Host     string // Target host
	Port     int    // Target port
	CertFile string // Client certificate file, optional
	KeyFile  string // Client private key file
	CAFile   string // CA certificate file for server verification, enables TLS
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host: "localhost",
		Port: 2223,
	}
}

// Validate checks if the client configuration is valid
func (c ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("certificate and key files must be given together")
	}

	if c.CertFile != "" && c.CAFile == "" {
		return fmt.Errorf("client certificate requires a CA file")
	}

	return nil
}

// LoadClientTLSConfig creates TLS configuration for the client, or nil when
// the client talks plain HTTP.
func (c ClientConfig) LoadClientTLSConfig() (*tls.Config, error) {
	if c.CAFile == "" {
		return nil, nil
	}

	pool, err := loadCertPool(c.CAFile)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS13,
	}

	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}
