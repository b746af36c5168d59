package middleware

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/observability"
)

// MetricsSource supplies the OTel HTTP instruments. The telemetry component
// satisfies it; Metrics returns nil until the component has started.
type MetricsSource interface {
	Metrics() *observability.Metrics
}

// Tracing starts a server span per request, continuing any W3C trace
// context sent by the caller, and records the OTel request instruments. The
// span is renamed to "METHOD /route/template" once the route is known.
func Tracing(src MetricsSource) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, holder := withRouteHolder(r)
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := observability.StartSpan(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("server.address", r.Host),
				),
			)
			defer span.End()

			if id := r.Header.Get(HeaderRequestID); id != "" {
				span.SetAttributes(attribute.String(observability.AttrRequestID, id))
			}
			if traceID, spanID := observability.TraceIDs(ctx); traceID != "" {
				ctx = logger.ContextWith(ctx, logger.FieldTraceID, traceID)
				ctx = logger.ContextWith(ctx, logger.FieldSpanID, spanID)
			}

			var metrics *observability.Metrics
			if src != nil {
				metrics = src.Metrics()
			}
			if metrics != nil {
				metrics.RecordRequestStart(ctx)
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			route := holder.get()
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String(observability.AttrRoute, route),
				attribute.Int("http.response.status_code", sw.status),
			)
			if sw.status >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", sw.status))
			}
			if metrics != nil {
				metrics.RecordRequestEnd(ctx, r.Method, route, sw.status, time.Since(start))
			}
		})
	}
}
