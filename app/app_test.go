package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/controller"
	"github.com/kbukum/mywebapi/di"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/openapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-with-enough-bytes-0123456789"

type report struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type reportController struct{}

func (reportController) Name() string     { return "reports" }
func (reportController) BasePath() string { return "/reports" }
func (reportController) Routes() []controller.Route {
	return []controller.Route{
		{Method: http.MethodGet, Path: "/:id", Permission: "reports:read", Response: report{},
			Handler: func(c *gin.Context) { controller.RespondOK(c, report{ID: c.Param("id")}) }},
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Auth.JWT.Secret = testSecret
	cfg.Auth.Roles = map[string][]string{"viewer": {"*:read"}}
	cfg.Logging.Level = "error"
	return cfg
}

func newBuilder(t *testing.T, cfg *Config) *Builder {
	t.Helper()
	b, err := NewBuilder(nil, WithConfig(cfg), WithLogger(logger.NewNop()), WithSummaryWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return b
}

// buildHost wires the pipeline the way the entry point does.
func buildHost(t *testing.T, cfg *Config) *App {
	t.Helper()
	b := newBuilder(t, cfg)
	for _, err := range []error{
		b.AddControllers(reportController{}),
		b.AddEndpointsAPIExplorer(),
		b.AddSwaggerGen(),
	} {
		if err != nil {
			t.Fatalf("builder: %v", err)
		}
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := a.UseSwagger(); err != nil {
		t.Fatalf("UseSwagger failed: %v", err)
	}
	if err := a.UseSwaggerUI(nil); err != nil {
		t.Fatalf("UseSwaggerUI failed: %v", err)
	}
	a.MapRedirect("/", "/swagger")
	a.UseHTTPSRedirection()
	if err := a.UseAuthorization(); err != nil {
		t.Fatalf("UseAuthorization failed: %v", err)
	}
	if err := a.MapControllers(); err != nil {
		t.Fatalf("MapControllers failed: %v", err)
	}
	return a
}

func get(h http.Handler, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyDefaults()
	if cfg.Name != ServiceName || cfg.Environment != "development" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if !cfg.Docs.Enabled || cfg.Docs.Title != ServiceName || cfg.Docs.DocumentName != "v1" {
		t.Errorf("unexpected docs config %+v", cfg.Docs)
	}
	if !cfg.Auth.Enabled || cfg.Server.Port != 8080 || cfg.Version == "" {
		t.Errorf("unexpected defaults: auth=%v port=%d version=%q", cfg.Auth.Enabled, cfg.Server.Port, cfg.Version)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.JWT.Secret = "" }, "auth.jwt"},
		{"auth disabled", func(c *Config) { c.Auth.Enabled = false; c.Auth.JWT.Secret = "" }, ""},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "environment"},
		{"bad document name", func(c *Config) { c.Docs.DocumentName = "v1/x" }, "docs.document_name"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad telemetry", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "http://x:4318" }, "telemetry"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewBuilderLoadsFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `name: reports-api
environment: development
logging:
  level: error
server:
  port: 9000
auth:
  jwt:
    secret: "` + testSecret + `"
docs:
  title: "Reports"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := NewBuilder([]string{"--config", path, "--port", "9091", "--environment", "staging"},
		WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	cfg := b.Config()
	if cfg.Name != "reports-api" || cfg.Docs.Title != "Reports" {
		t.Errorf("file values not loaded: %+v", cfg.ServiceConfig)
	}
	if cfg.Server.Port != 9091 || cfg.Environment != "staging" {
		t.Errorf("flags not applied: port=%d env=%s", cfg.Server.Port, cfg.Environment)
	}
	if !cfg.Auth.Enabled || !cfg.Docs.Enabled {
		t.Error("absent booleans must keep their defaults")
	}
}

func TestNewBuilderErrors(t *testing.T) {
	if _, err := NewBuilder([]string{"--unknown"}, WithLogger(logger.NewNop())); err == nil {
		t.Error("expected unknown flag error")
	}
	cfg := testConfig()
	cfg.Auth.JWT.Secret = ""
	_, err := NewBuilder(nil, WithConfig(cfg), WithLogger(logger.NewNop()))
	if err == nil || !strings.Contains(err.Error(), "config validation") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBuilderServices(t *testing.T) {
	b := newBuilder(t, testConfig())
	for _, key := range []string{di.Host.Config, di.Host.Logger, di.Host.TokenService, di.Host.Authorizer} {
		if !b.Services().Has(key) {
			t.Errorf("expected %q to be registered", key)
		}
	}
	if err := b.AddControllers(reportController{}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddControllers(reportController{}); err == nil {
		t.Error("expected duplicate controller error")
	}
	if err := b.AddSwaggerGen(); err != nil {
		t.Fatal(err)
	}
	if _, err := di.Resolve[*openapi.Generator](b.Services(), di.Host.SwaggerGen); err == nil {
		t.Error("generator must require the explorer")
	}

	cfg := testConfig()
	cfg.Auth.Enabled = false
	if newBuilder(t, cfg).Services().Has(di.Host.TokenService) {
		t.Error("token service must not be registered with auth disabled")
	}
}

func TestAppMissingServices(t *testing.T) {
	a, err := newBuilder(t, testConfig()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := a.MapControllers(); !errors.Is(err, ErrControllersNotRegistered) {
		t.Errorf("expected ErrControllersNotRegistered, got %v", err)
	}
	if err := a.UseSwagger(); err == nil {
		t.Error("expected error without AddSwaggerGen")
	}
}

func TestPipeline(t *testing.T) {
	a := buildHost(t, testConfig())
	h := a.Handler()

	rec := get(h, "/", "")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/swagger" {
		t.Errorf("GET /: expected redirect to /swagger, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = get(h, "/swagger", "")
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/swagger/index.html" {
		t.Errorf("GET /swagger: expected UI redirect, got %d", rec.Code)
	}

	rec = get(h, "/swagger/v1/swagger.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("schema: expected 200, got %d", rec.Code)
	}
	var doc struct {
		Swagger string                               `json:"swagger"`
		Paths   map[string]map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	op, ok := doc.Paths["/api/reports/{id}"]["get"]
	if doc.Swagger != "2.0" || !ok || op["security"] == nil {
		t.Errorf("expected secured report operation, got %v", doc.Paths)
	}

	if rec := get(h, "/api/reports/1", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	tokens := di.MustResolve[*TokenService](a.Services(), di.Host.TokenService)
	viewer, err := tokens.GenerateAccess(auth.NewClaims("alice", "viewer"))
	if err != nil {
		t.Fatal(err)
	}
	if rec := get(h, "/api/reports/1", viewer); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with viewer token, got %d %s", rec.Code, rec.Body.String())
	}
	guest, _ := tokens.GenerateAccess(auth.NewClaims("bob", "guest"))
	if rec := get(h, "/api/reports/1", guest); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for guest, got %d", rec.Code)
	}

	if rec := get(h, "/liveness", ""); rec.Code != http.StatusOK {
		t.Errorf("expected liveness 200, got %d", rec.Code)
	}
	if rec := get(h, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the components start, got %d", rec.Code)
	}
}

func TestMapControllersBeforeUseAuthorization(t *testing.T) {
	b := newBuilder(t, testConfig())
	if err := b.AddControllers(reportController{}); err != nil {
		t.Fatal(err)
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := a.MapControllers(); err != nil {
		t.Fatalf("MapControllers failed: %v", err)
	}
	if err := a.UseAuthorization(); err != nil {
		t.Fatalf("UseAuthorization failed: %v", err)
	}

	h := a.Handler()
	if rec := get(h, "/api/reports/1", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d %s", rec.Code, rec.Body.String())
	}
	tokens := di.MustResolve[*TokenService](a.Services(), di.Host.TokenService)
	viewer, err := tokens.GenerateAccess(auth.NewClaims("alice", "viewer"))
	if err != nil {
		t.Fatal(err)
	}
	if rec := get(h, "/api/reports/1", viewer); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with viewer token, got %d", rec.Code)
	}
}

func TestPipelineRedirectsToHTTPS(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HTTPSPort = 8443
	h := buildHost(t, cfg).Handler()

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/swagger/v1/swagger.json", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	want := "https://api.example.com:8443/swagger/v1/swagger.json"
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != want {
		t.Errorf("expected redirect to %s, got %d %q", want, rec.Code, rec.Header().Get("Location"))
	}
}

func TestPipelineAuthDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = false
	h := buildHost(t, cfg).Handler()
	if rec := get(h, "/api/reports/1", ""); rec.Code != http.StatusOK {
		t.Errorf("expected open route with auth disabled, got %d", rec.Code)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = freePort(t)
	a := buildHost(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !a.Server().Running() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + a.Server().Addr() + "/health")
	if err != nil {
		cancel()
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if a.Server().Running() {
		t.Error("server still running after shutdown")
	}
}
