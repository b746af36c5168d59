// Package endpoint provides the anonymous system endpoints mounted by the
// server: /health, /liveness, /readiness, /info, /version and /metrics.
package endpoint
