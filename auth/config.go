package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/mywebapi/auth/jwt"
	"github.com/kbukum/mywebapi/validation"
)

// Config holds the auth section of the service configuration.
//
//	auth:
//	  enabled: true
//	  jwt:
//	    secret: "change-me"
//	    access_token_ttl: "15m"
//	  roles:
//	    admin: ["*:*"]
//	    viewer: ["*:read"]
type Config struct {
	// Enabled turns on the bearer-token gate in front of controller routes.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	JWT jwt.Config `yaml:"jwt" mapstructure:"jwt"`

	// Roles maps a role name to the resource:action patterns it grants.
	Roles map[string][]string `yaml:"roles" mapstructure:"roles"`
}

// ApplyDefaults sets JWT defaults.
func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
}

// Validate checks the JWT settings and every role pattern when auth is
// enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	for role, patterns := range c.Roles {
		for _, p := range patterns {
			if !validation.IsPermission(p) {
				return fmt.Errorf("auth.roles.%s: %q is not a resource:action pattern", role, p)
			}
		}
	}
	return nil
}

// Describe returns a one-liner for the startup summary, e.g.
// "JWT(HS256) TTL=15m0s roles=admin,viewer".
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	line := fmt.Sprintf("JWT(%s) TTL=%s", c.JWT.Method, c.JWT.AccessTokenTTL)
	if len(c.Roles) > 0 {
		roles := make([]string, 0, len(c.Roles))
		for r := range c.Roles {
			roles = append(roles, r)
		}
		sort.Strings(roles)
		line += " roles=" + strings.Join(roles, ",")
	}
	return line
}
