package middleware

import (
	"net/http"

	apperrors "github.com/kbukum/mywebapi/errors"
)

// BodySizeLimit rejects requests whose declared Content-Length exceeds limit
// with 413 and caps the body of the rest with http.MaxBytesReader, so
// handlers reading past the limit get an *http.MaxBytesError.
func BodySizeLimit(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				apperrors.WriteJSON(w, apperrors.PayloadTooLarge(limit))
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
