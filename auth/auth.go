package auth

import (
	"slices"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a bearer token and returns the parsed claims.
// The authorization middleware depends on this contract rather than on the
// JWT service directly.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// TokenValidatorFunc adapts an ordinary function to TokenValidator.
type TokenValidatorFunc func(token string) (*Claims, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(token string) (*Claims, error) {
	return f(token)
}

// Claims is the token payload issued and accepted by the host: the standard
// registered claims plus the caller's roles.
type Claims struct {
	gojwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// NewClaims returns claims for subject holding roles.
func NewClaims(subject string, roles ...string) *Claims {
	return &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: subject},
		Roles:            roles,
	}
}

// SetDefaults fills unset time, issuer and audience claims. It is called by
// the JWT service before signing access tokens.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.NotBefore == nil {
		c.NotBefore = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil && ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = gojwt.ClaimStrings(audience)
	}
}

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
