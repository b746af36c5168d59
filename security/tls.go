package security

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/acme/autocert"
)

// AutocertConfig enables certificates from an ACME CA for the listed hosts.
type AutocertConfig struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	Hosts    []string `yaml:"hosts" mapstructure:"hosts"`
	CacheDir string   `yaml:"cache_dir" mapstructure:"cache_dir"`
	Email    string   `yaml:"email" mapstructure:"email"`
}

// TLSConfig holds the HTTPS listener's certificate settings.
type TLSConfig struct {
	CertFile   string         `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile    string         `yaml:"key_file" mapstructure:"key_file"`
	MinVersion string         `yaml:"min_version" mapstructure:"min_version"` // "1.2" or "1.3"
	Autocert   AutocertConfig `yaml:"autocert" mapstructure:"autocert"`
}

// ApplyDefaults sets the minimum version and autocert cache directory.
func (c *TLSConfig) ApplyDefaults() {
	if c.MinVersion == "" {
		c.MinVersion = "1.2"
	}
	if c.Autocert.Enabled && c.Autocert.CacheDir == "" {
		c.Autocert.CacheDir = ".autocert"
	}
}

// Validate checks that exactly one certificate source is configured
// consistently.
func (c *TLSConfig) Validate() error {
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("server.tls: both cert_file and key_file must be provided together")
	}
	if c.Autocert.Enabled {
		if c.CertFile != "" {
			return fmt.Errorf("server.tls: cert_file and autocert are mutually exclusive")
		}
		if len(c.Autocert.Hosts) == 0 {
			return fmt.Errorf("server.tls.autocert: at least one host is required")
		}
	}
	if _, err := parseMinVersion(c.MinVersion); err != nil {
		return err
	}
	return nil
}

// IsEnabled reports whether any certificate source is configured.
func (c *TLSConfig) IsEnabled() bool {
	return c.CertFile != "" || c.Autocert.Enabled
}

// ServerTLS is the built listener configuration. Manager is set when
// certificates come from ACME.
type ServerTLS struct {
	Config  *tls.Config
	Manager *autocert.Manager
}

// HTTPHandler wraps the plain-HTTP handler so ACME http-01 challenges are
// answered before anything else sees the request. Without autocert it
// returns next unchanged.
func (s *ServerTLS) HTTPHandler(next http.Handler) http.Handler {
	if s == nil || s.Manager == nil {
		return next
	}
	return s.Manager.HTTPHandler(next)
}

// Build loads the certificate material. It returns nil when TLS is not
// configured.
func (c *TLSConfig) Build() (*ServerTLS, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	minVersion, err := parseMinVersion(c.MinVersion)
	if err != nil {
		return nil, err
	}

	if c.Autocert.Enabled {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(c.Autocert.Hosts...),
			Cache:      autocert.DirCache(c.Autocert.CacheDir),
			Email:      c.Autocert.Email,
		}
		cfg := m.TLSConfig()
		cfg.MinVersion = minVersion
		return &ServerTLS{Config: cfg, Manager: m}, nil
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("server.tls: failed to load certificate: %w", err)
	}
	return &ServerTLS{Config: &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}}, nil
}

func parseMinVersion(v string) (uint16, error) {
	switch strings.TrimSpace(v) {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("server.tls.min_version must be 1.2 or 1.3 (got: %s)", v)
	}
}
