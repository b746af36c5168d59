package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/kbukum/mywebapi/component"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "" || cfg.SampleRate != 0 {
		t.Errorf("disabled config must stay empty, got %+v", cfg)
	}

	cfg = Config{Enabled: true}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint, got %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %g", cfg.SampleRate)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"disabled", Config{SampleRate: 7}, ""},
		{"valid", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: 0.25}, ""},
		{"missing endpoint", Config{Enabled: true, SampleRate: 1}, "endpoint is required"},
		{"scheme", Config{Enabled: true, Endpoint: "http://otel:4318", SampleRate: 1}, "without a scheme"},
		{"rate too high", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: 1.5}, "sample_rate"},
		{"negative rate", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: -0.1}, "sample_rate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%g) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(ServiceInfo{Name: "mywebapi", Version: "1.2.3", Environment: "staging"})
	if err != nil {
		t.Fatalf("newResource failed: %v", err)
	}
	set := res.Set()
	if v, ok := set.Value(semconv.ServiceNameKey); !ok || v.AsString() != "mywebapi" {
		t.Errorf("expected service.name mywebapi, got %v", v.AsString())
	}
	if v, ok := set.Value(semconv.DeploymentEnvironmentKey); !ok || v.AsString() != "staging" {
		t.Errorf("expected deployment.environment staging, got %v", v.AsString())
	}
}

func TestNewMetrics(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordRequestStart(ctx)
	metrics.RecordRequestEnd(ctx, "GET", "/api/items/{id}", 200, 10*time.Millisecond)
}

func TestSetSpanAttributeAndTraceIDs(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /api/items")
	SetSpanAttribute(ctx, AttrRequestID, "req-1")
	SetSpanAttribute(ctx, "http.response.status_code", 200)
	SetSpanAttribute(ctx, "ignored", struct{}{})

	traceID, spanID := TraceIDs(ctx)
	if len(traceID) != 32 || len(spanID) != 16 {
		t.Errorf("unexpected ids %q %q", traceID, spanID)
	}
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[AttrRequestID] != "req-1" || attrs["http.response.status_code"] != "200" {
		t.Errorf("unexpected attributes %v", attrs)
	}
	if _, ok := attrs["ignored"]; ok {
		t.Error("unsupported attribute types must be skipped")
	}
}

func TestTraceIDsWithoutSpan(t *testing.T) {
	traceID, spanID := TraceIDs(context.Background())
	if traceID != "" || spanID != "" {
		t.Errorf("expected empty ids, got %q %q", traceID, spanID)
	}
	SetSpanAttribute(context.Background(), "k", "v")
}

func TestComponentDisabled(t *testing.T) {
	c := NewComponent(Config{}, ServiceInfo{Name: "mywebapi"}, nil)
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if c.Metrics() != nil {
		t.Error("expected nil metrics before start")
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy || h.Message != "disabled" {
		t.Errorf("unexpected health %+v", h)
	}
	if c.Metrics() == nil {
		t.Error("expected metrics after start")
	}
	if d := c.Describe(); d.Details != "disabled" || d.Type != "telemetry" {
		t.Errorf("unexpected description %+v", d)
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestComponentEnabledExportsToCollector(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	cfg := Config{Enabled: true, Endpoint: collector.Listener.Addr().String(), Insecure: true}
	cfg.ApplyDefaults()
	c := NewComponent(cfg, ServiceInfo{Name: "mywebapi", Version: "1.0.0", Environment: "test"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy || h.Message != "" {
		t.Errorf("unexpected health %+v", h)
	}
	if d := c.Describe(); !strings.Contains(d.Details, "otlp="+cfg.Endpoint) {
		t.Errorf("unexpected description %+v", d)
	}

	_, span := StartSpan(ctx, "GET /api/items")
	span.End()

	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after stop, got %s", h.Status)
	}
}
