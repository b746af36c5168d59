// Package errors provides the structured error type used across the host.
//
// Every error that reaches a client is an *AppError rendered through
// ToResponse, so middleware, controllers and the router's fallback handlers
// share one envelope:
//
//	{"error": {"code": "UNAUTHORIZED", "message": "...", "retryable": false}}
package errors
