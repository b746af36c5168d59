// Package authctx carries validated token claims on a request context.
//
// The authorization middleware stores the claims; handlers read them:
//
//	claims, ok := authctx.Get(c.Request.Context())
//	subject := authctx.MustGet(ctx).Subject
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/mywebapi/auth"
)

type contextKey struct{}

// ErrNoClaims is returned when the context carries no claims.
var ErrNoClaims = errors.New("authctx: no claims in context")

// Set stores claims on ctx.
func Set(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// Get returns the claims on ctx and whether they were present.
func Get(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// MustGet returns the claims on ctx and panics when they are missing. Use it
// only behind the authorization middleware.
func MustGet(ctx context.Context) *auth.Claims {
	claims, ok := Get(ctx)
	if !ok {
		panic("authctx: claims not found in context")
	}
	return claims
}

// GetOrError returns the claims on ctx or ErrNoClaims.
func GetOrError(ctx context.Context) (*auth.Claims, error) {
	claims, ok := Get(ctx)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// Subject returns the subject of the claims on ctx, or "" when anonymous.
func Subject(ctx context.Context) string {
	if claims, ok := Get(ctx); ok {
		return claims.Subject
	}
	return ""
}
