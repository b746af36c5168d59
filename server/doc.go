// Package server provides the HTTP host: a Gin engine mounted on an
// http.ServeMux, served over HTTP/1.1 and h2c on the plain listener and over
// TLS on an optional second listener.
//
// The request pipeline wraps the whole mux, outermost first:
//
//   - Recovery: panic recovery with the error envelope
//   - RequestID: X-Request-Id propagation
//   - RequestLogger: structured request logging
//   - Tracing: OpenTelemetry server spans and request instruments
//   - Metrics: Prometheus request counters and latency
//   - HTTPSRedirect and HSTS: transport security
//   - CORS, RateLimit, BodySizeLimit
//
// Authorization is applied per route by the controller registry, so the
// documentation and system endpoints stay anonymous.
//
// # Endpoints
//
// RegisterSystemEndpoints adds /health, /liveness, /readiness, /info,
// /version and /metrics.
package server
