package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/mywebapi/auth/jwt"
)

func TestClaimsSetDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewClaims("user-1", "admin", "viewer")
	c.SetDefaults(now, 15*time.Minute, "mywebapi", []string{"api"})

	if !c.ExpiresAt.Time.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("unexpected expiry %v", c.ExpiresAt)
	}
	if !c.IssuedAt.Time.Equal(now) || !c.NotBefore.Time.Equal(now) {
		t.Errorf("unexpected issued/not-before %v %v", c.IssuedAt, c.NotBefore)
	}
	if c.Issuer != "mywebapi" || len(c.Audience) != 1 || c.Audience[0] != "api" {
		t.Errorf("unexpected issuer/audience %q %v", c.Issuer, c.Audience)
	}

	c.SetDefaults(now.Add(time.Hour), time.Minute, "other", nil)
	if c.Issuer != "mywebapi" || !c.ExpiresAt.Time.Equal(now.Add(15*time.Minute)) {
		t.Error("SetDefaults must not overwrite existing claims")
	}
}

func TestClaimsHasRole(t *testing.T) {
	c := NewClaims("user-1", "viewer")
	if !c.HasRole("viewer") || c.HasRole("admin") {
		t.Errorf("unexpected roles %v", c.Roles)
	}
}

func TestTokenValidatorWithJWTService(t *testing.T) {
	svc, err := jwt.NewService(&jwt.Config{Secret: "s3cret"}, func() *Claims { return &Claims{} })
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	token, err := svc.GenerateAccess(NewClaims("user-1", "admin"))
	if err != nil {
		t.Fatalf("GenerateAccess failed: %v", err)
	}

	var v TokenValidator = TokenValidatorFunc(svc.Parse)
	claims, err := v.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "user-1" || !claims.HasRole("admin") {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"disabled skips validation", Config{}, ""},
		{"valid", Config{Enabled: true, JWT: jwt.Config{Secret: "s"},
			Roles: map[string][]string{"admin": {"*:*"}, "viewer": {"*:read"}}}, ""},
		{"missing secret", Config{Enabled: true}, "auth.jwt: secret is required"},
		{"bad pattern", Config{Enabled: true, JWT: jwt.Config{Secret: "s"},
			Roles: map[string][]string{"editor": {"articles"}}}, "auth.roles.editor"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfigDescribe(t *testing.T) {
	cfg := Config{Enabled: true, JWT: jwt.Config{Secret: "s"},
		Roles: map[string][]string{"viewer": {"*:read"}, "admin": {"*:*"}}}
	cfg.ApplyDefaults()
	if got := cfg.Describe(); got != "JWT(HS256) TTL=15m0s roles=admin,viewer" {
		t.Errorf("unexpected description %q", got)
	}
	if (&Config{}).Describe() != "disabled" {
		t.Error("expected disabled")
	}
}
