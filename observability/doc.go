// Package observability wires OpenTelemetry tracing and metrics for the
// MyWebAPI host.
//
// The telemetry Component installs OTLP HTTP tracer and meter providers when
// telemetry.enabled is set and shuts them down with the rest of the
// lifecycle. Request spans and instruments are produced by
// middleware.Tracing:
//
//	tel := observability.NewComponent(cfg.Telemetry, svc, log)
//	app.RegisterComponent(tel)
//	ctx, span := observability.StartSpan(ctx, "GET /api/items")
//	defer span.End()
package observability
