package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/mywebapi/component"
	"github.com/kbukum/mywebapi/logger"
)

const componentName = "telemetry"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component owns the tracer and meter providers for the lifetime of the
// service. When telemetry is disabled it still hands out Metrics backed by
// the global no-op meter, so the tracing middleware needs no special case.
type Component struct {
	cfg Config
	svc ServiceInfo
	log *logger.Logger

	mu      sync.RWMutex
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
	started bool
}

// NewComponent creates the telemetry component. cfg must already have
// defaults applied.
func NewComponent(cfg Config, svc ServiceInfo, log *logger.Logger) *Component {
	if log == nil {
		log = logger.NewNop()
	}
	return &Component{cfg: cfg, svc: svc, log: log.WithComponent(componentName)}
}

// Name returns the registration name.
func (c *Component) Name() string { return componentName }

// Start installs the OTLP providers when telemetry is enabled and creates
// the HTTP server instruments.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Enabled {
		tp, err := InitTracer(ctx, c.cfg, c.svc)
		if err != nil {
			return fmt.Errorf("telemetry tracer: %w", err)
		}
		mp, err := InitMeter(ctx, c.cfg, c.svc)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return fmt.Errorf("telemetry meter: %w", err)
		}
		c.tp, c.mp = tp, mp
		c.log.Info("Telemetry exporters started", logger.Fields(
			"endpoint", c.cfg.Endpoint,
			"sample_rate", c.cfg.SampleRate,
		))
	}

	metrics, err := NewMetrics(Meter())
	if err != nil {
		return err
	}
	c.metrics = metrics
	c.started = true
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.tp != nil {
		if err := c.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		c.tp = nil
	}
	if c.mp != nil {
		if err := c.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		c.mp = nil
	}
	c.started = false
	return errors.Join(errs...)
}

// Health reports whether the component has started.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	switch {
	case !c.started:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.cfg.Enabled:
		h.Message = "disabled"
	}
	return h
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s sample_rate=%g", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}

// Metrics returns the HTTP server instruments, or nil before Start.
func (c *Component) Metrics() *Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}
