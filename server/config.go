package server

import (
	"fmt"

	"github.com/kbukum/mywebapi/security"
	"github.com/kbukum/mywebapi/server/middleware"
	"github.com/kbukum/mywebapi/util"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
	// HTTPSPort is the TLS listener port and the redirect target. Set it
	// without TLS when a proxy terminates TLS on that port.
	HTTPSPort       int    `yaml:"https_port" mapstructure:"https_port"`
	ReadTimeout     int    `yaml:"read_timeout" mapstructure:"read_timeout"`         // seconds
	WriteTimeout    int    `yaml:"write_timeout" mapstructure:"write_timeout"`       // seconds
	IdleTimeout     int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	MaxBodySize     string `yaml:"max_body_size" mapstructure:"max_body_size"`       // e.g. "10MB"

	TLS           security.TLSConfig             `yaml:"tls" mapstructure:"tls"`
	HTTPSRedirect middleware.HTTPSRedirectConfig `yaml:"https_redirect" mapstructure:"https_redirect"`
	HSTS          middleware.HSTSConfig          `yaml:"hsts" mapstructure:"hsts"`
	CORS          middleware.CORSConfig          `yaml:"cors" mapstructure:"cors"`
	RateLimit     middleware.RateLimitConfig     `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.HTTPSPort == 0 && c.TLS.IsEnabled() {
		c.HTTPSPort = 8443
		if c.TLS.Autocert.Enabled {
			c.HTTPSPort = 443
		}
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
	c.TLS.ApplyDefaults()
	if c.HTTPSRedirect.StatusCode == 0 {
		c.HTTPSRedirect.StatusCode = 307
	}
	if c.HSTS.MaxAge == 0 {
		c.HSTS.MaxAge = 31536000
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond == 0 {
			c.RateLimit.RequestsPerSecond = 50
		}
		if c.RateLimit.Burst == 0 {
			c.RateLimit.Burst = 100
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.HTTPSPort < 0 || c.HTTPSPort > 65535 {
		return fmt.Errorf("server.https_port must be between 0 and 65535 (got: %d)", c.HTTPSPort)
	}
	if c.TLS.IsEnabled() && c.Port != 0 && c.HTTPSPort == c.Port {
		return fmt.Errorf("server.https_port must differ from server.port (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be non-negative (got: %d)", c.ShutdownTimeout)
	}
	if c.MaxBodySize != "" {
		if _, err := util.ParseSize(c.MaxBodySize); err != nil {
			return fmt.Errorf("server.max_body_size: %w", err)
		}
	}
	switch c.HTTPSRedirect.StatusCode {
	case 0, 301, 302, 307, 308:
	default:
		return fmt.Errorf("server.https_redirect.status_code must be 301, 302, 307 or 308 (got: %d)", c.HTTPSRedirect.StatusCode)
	}
	if c.HSTS.MaxAge < 0 {
		return fmt.Errorf("server.hsts.max_age must be non-negative (got: %d)", c.HSTS.MaxAge)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("server.rate_limit.requests_per_second must be positive (got: %g)", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("server.rate_limit.burst must be positive (got: %d)", c.RateLimit.Burst)
		}
	}
	return nil
}

// bodyLimit returns the parsed MaxBodySize, 0 when unset.
func (c *Config) bodyLimit() int64 {
	if c.MaxBodySize == "" {
		return 0
	}
	n, err := util.ParseSize(c.MaxBodySize)
	if err != nil {
		return 0
	}
	return n
}
