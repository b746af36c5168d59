package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/kbukum/mywebapi/logger"
)

// HTTPSRedirectConfig configures the insecure-to-secure transport upgrade.
type HTTPSRedirectConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// StatusCode is one of 301, 302, 307 or 308 (default 307).
	StatusCode int `yaml:"status_code" mapstructure:"status_code"`
	// TrustForwardedHeaders treats X-Forwarded-Proto: https as secure, for
	// deployments behind a TLS-terminating proxy.
	TrustForwardedHeaders bool `yaml:"trust_forwarded_headers" mapstructure:"trust_forwarded_headers"`
}

// HSTSConfig configures the Strict-Transport-Security header.
type HSTSConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxAge is in seconds (default one year).
	MaxAge            int  `yaml:"max_age" mapstructure:"max_age"`
	IncludeSubdomains bool `yaml:"include_subdomains" mapstructure:"include_subdomains"`
}

// IsSecure reports whether r arrived over TLS, directly or through a
// trusted proxy.
func IsSecure(r *http.Request, trustForwarded bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustForwarded && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// HTTPSRedirect redirects insecure requests to the same host and URI on
// httpsPort. With no known HTTPS port it warns once and lets requests
// through.
func HTTPSRedirect(cfg HTTPSRedirectConfig, httpsPort int, log *logger.Logger) Middleware {
	status := cfg.StatusCode
	if status == 0 {
		status = http.StatusTemporaryRedirect
	}
	var warnOnce sync.Once

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsSecure(r, cfg.TrustForwardedHeaders) {
				next.ServeHTTP(w, r)
				return
			}
			if httpsPort <= 0 {
				warnOnce.Do(func() {
					log.Warn("Failed to determine the https port for redirect")
				})
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, httpsURL(r, httpsPort), status)
		})
	}
}

// httpsURL builds the redirect target, omitting the default port 443.
func httpsURL(r *http.Request, port int) string {
	host := hostOnly(r.Host)
	switch {
	case port != 443:
		host = net.JoinHostPort(host, strconv.Itoa(port))
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	return "https://" + host + r.URL.RequestURI()
}

// HSTS sets Strict-Transport-Security on secure responses. Loopback hosts
// never receive the header.
func HSTS(cfg HSTSConfig, trustForwarded bool) Middleware {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	value := fmt.Sprintf("max-age=%d", maxAge)
	if cfg.IncludeSubdomains {
		value += "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsSecure(r, trustForwarded) && !isLoopbackHost(hostOnly(r.Host)) {
				w.Header().Set("Strict-Transport-Security", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
