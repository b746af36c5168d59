package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mywebapi/component"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/security/tlstest"
	"github.com/kbukum/mywebapi/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() Config {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	return cfg
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) *Server {
	t.Helper()
	s, err := New(cfg, logger.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.HTTPSPort != 0 || cfg.ShutdownTimeout != 5 || cfg.MaxBodySize != "10MB" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.HTTPSRedirect.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("expected 307 redirect default, got %d", cfg.HTTPSRedirect.StatusCode)
	}
	if cfg.RateLimit.RequestsPerSecond != 0 {
		t.Error("rate limit defaults must only apply when enabled")
	}

	tlsCfg := Config{}
	tlsCfg.TLS.CertFile, tlsCfg.TLS.KeyFile = "cert.pem", "key.pem"
	tlsCfg.ApplyDefaults()
	if tlsCfg.HTTPSPort != 8443 {
		t.Errorf("expected https port 8443 with TLS, got %d", tlsCfg.HTTPSPort)
	}

	acme := Config{}
	acme.TLS.Autocert.Enabled = true
	acme.ApplyDefaults()
	if acme.HTTPSPort != 443 {
		t.Errorf("expected https port 443 with autocert, got %d", acme.HTTPSPort)
	}

	limited := Config{}
	limited.RateLimit.Enabled = true
	limited.ApplyDefaults()
	if limited.RateLimit.RequestsPerSecond != 50 || limited.RateLimit.Burst != 100 {
		t.Errorf("unexpected rate limit defaults: %+v", limited.RateLimit)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"port range", func(c *Config) { c.Port = 70000 }, "server.port"},
		{"https port range", func(c *Config) { c.HTTPSPort = -1 }, "server.https_port"},
		{"negative timeout", func(c *Config) { c.ShutdownTimeout = -1 }, "server.shutdown_timeout"},
		{"bad body size", func(c *Config) { c.MaxBodySize = "lots" }, "server.max_body_size"},
		{"redirect status", func(c *Config) { c.HTTPSRedirect.StatusCode = 303 }, "status_code"},
		{"half a key pair", func(c *Config) { c.TLS.CertFile = "cert.pem" }, "server.tls"},
		{"same ports", func(c *Config) {
			c.TLS.CertFile, c.TLS.KeyFile = "cert.pem", "key.pem"
			c.HTTPSPort = c.Port
		}, "must differ"},
		{"rate", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RequestsPerSecond = -1
		}, "requests_per_second"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestNewRejectsUnreadableTLS(t *testing.T) {
	cfg := testConfig()
	cfg.TLS.CertFile = tlstest.WriteInvalidPEM(t, "cert.pem")
	cfg.TLS.KeyFile = tlstest.WriteInvalidPEM(t, "key.pem")
	if _, err := New(cfg, logger.NewNop()); err == nil {
		t.Fatal("expected certificate load error")
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.Engine().GET("/api/items", func(c *gin.Context) { c.Status(http.StatusOK) })
	h := s.Handler()

	tests := []struct {
		method, path string
		status       int
		code         string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, "NOT_FOUND"},
		{http.MethodDelete, "/api/items", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}
	for _, tc := range tests {
		rec := serve(h, tc.method, tc.path)
		if rec.Code != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
			continue
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error.Code != tc.code {
			t.Errorf("%s %s: expected code %s, got %q (%v)", tc.method, tc.path, tc.code, body.Error.Code, err)
		}
	}
}

func TestSystemEndpointsAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.RegisterSystemEndpoints("mywebapi", "test", func(ctx context.Context) []component.Health {
		return []component.Health{{Name: "http_server", Status: component.StatusHealthy}}
	})
	h := s.Handler()

	for _, path := range []string{"/health", "/liveness", "/readiness", "/info", "/version"} {
		if rec := serve(h, http.MethodGet, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := serve(h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`http_requests_total{method="GET",route="/health",status="200"} 1`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestHandlerRedirectsWhenForced(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPSPort = 8443
	s := newTestServer(t, cfg)
	s.Engine().GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	if rec := serve(s.Handler(), http.MethodGet, "http://example.com/x?y=1"); rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through before UseHTTPSRedirection, got %d", rec.Code)
	}

	s.UseHTTPSRedirection()
	rec := serve(s.Handler(), http.MethodGet, "http://example.com/x?y=1")
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com:8443/x?y=1" {
		t.Errorf("unexpected Location %q", loc)
	}
}

func TestHandlerLimits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodySize = "1KB"
	cfg.RateLimit = middleware.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2}
	s := newTestServer(t, cfg, WithRateLimitKey(func(*http.Request) string { return "client" }))
	s.Engine().POST("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	h := s.Handler()

	big := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 2048)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}

	if rec := serve(h, http.MethodPost, "/echo"); rec.Code != http.StatusNoContent {
		t.Errorf("expected second request within burst, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/echo"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", rec.Code)
	}
}

func TestStartStop(t *testing.T) {
	var reported []error
	s := newTestServer(t, testConfig(), WithErrorHandler(func(err error) { reported = append(reported, err) }))
	s.RegisterSystemEndpoints("mywebapi", "test", nil)
	c := NewComponent(s)

	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Start(context.Background()); err == nil {
		t.Error("expected error on second start")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy while serving, got %s", h.Status)
	}

	resp, err := http.Get("http://" + s.Addr() + "/liveness")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.Running() {
		t.Error("expected server stopped")
	}
	if len(reported) != 0 {
		t.Errorf("graceful stop must not report errors, got %v", reported)
	}
}

func TestStartBindFailure(t *testing.T) {
	first := newTestServer(t, testConfig())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cfg := testConfig()
	_, port, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Port, _ = strconv.Atoi(port)
	second := newTestServer(t, cfg)
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to bind") {
		t.Fatalf("expected bind error, got %v", err)
	}
}

func TestTLSListenerAndRedirect(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg := testConfig()
	cfg.TLS.CertFile, cfg.TLS.KeyFile = certs.CertFile, certs.KeyFile
	cfg.HSTS.Enabled = true
	s := newTestServer(t, cfg)
	s.UseHTTPSRedirection()
	s.RegisterSystemEndpoints("mywebapi", "test", nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.TLSAddr() == "" || s.TLSAddr() == s.Addr() {
		t.Fatalf("expected a separate TLS address, got %q", s.TLSAddr())
	}

	resp, err := noRedirectClient().Get("http://" + s.Addr() + "/liveness")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 from plain listener, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if loc != "https://"+s.TLSAddr()+"/liveness" {
		t.Fatalf("unexpected Location %q (tls addr %s)", loc, s.TLSAddr())
	}

	resp, err = certs.Client().Get(loc)
	if err != nil {
		t.Fatalf("HTTPS GET failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 over TLS, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent to loopback hosts")
	}

	desc := NewComponent(s).Describe()
	if !strings.Contains(desc.Details, "https="+s.TLSAddr()) || !strings.Contains(desc.Details, "redirect") {
		t.Errorf("unexpected description %q", desc.Details)
	}
}

func TestComponentRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.RegisterSystemEndpoints("mywebapi", "test", nil)
	s.Engine().DELETE("/api/items/:id", func(c *gin.Context) {})
	s.Engine().GET("/api/items/:id", func(c *gin.Context) {})

	routes := NewComponent(s).Routes()
	if len(routes) != 8 {
		t.Fatalf("expected 8 routes, got %d", len(routes))
	}
	if routes[0].Method != http.MethodGet || routes[1].Method != http.MethodDelete || routes[0].Path != "/api/items/:id" {
		t.Errorf("expected application routes first ordered by method, got %+v", routes[:2])
	}
	last := routes[len(routes)-1]
	if !systemPaths[last.Path] || !strings.HasSuffix(last.Handler, "⚙️") {
		t.Errorf("expected a labelled system route last, got %+v", last)
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := map[string]string{
		"github.com/acme/svc/api.(*ItemController).List-fm":       "ItemController.List",
		"github.com/kbukum/mywebapi/server/endpoint.Health.func1": "health",
		"main.Handler": "Handler",
	}
	for in, want := range tests {
		if got := formatHandlerName(in); got != want {
			t.Errorf("formatHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestServer(t, testConfig())
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if s.Running() {
		t.Error("expected not running")
	}
}
