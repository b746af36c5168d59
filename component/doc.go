// Package component defines lifecycle-managed pieces of the host (the HTTP
// server, the telemetry exporters) and the registry that starts them in
// order and stops them in reverse.
package component
