package authz

// Checker decides whether a role holds a resource:action permission.
type Checker interface {
	HasPermission(role string, permission string) bool
}

// CheckerFunc adapts an ordinary function to Checker.
type CheckerFunc func(role string, permission string) bool

// HasPermission implements Checker.
func (f CheckerFunc) HasPermission(role string, permission string) bool {
	return f(role, permission)
}

// MapChecker is an in-memory Checker built from the auth.roles section:
// role name to permission patterns, with wildcard matching.
type MapChecker struct {
	permissions map[string][]string
}

// NewMapChecker copies roles into a checker.
//
//	checker := authz.NewMapChecker(map[string][]string{
//	    "admin":  {"*:*"},
//	    "viewer": {"*:read"},
//	})
func NewMapChecker(roles map[string][]string) *MapChecker {
	perms := make(map[string][]string, len(roles))
	for role, patterns := range roles {
		perms[role] = append([]string(nil), patterns...)
	}
	return &MapChecker{permissions: perms}
}

// HasPermission implements Checker.
func (c *MapChecker) HasPermission(role string, required string) bool {
	patterns, ok := c.permissions[role]
	if !ok {
		return false
	}
	return MatchAny(patterns, required)
}

// Allowed reports whether any of roles grants required. An empty required
// permission only needs an authenticated caller and is always allowed.
func Allowed(c Checker, roles []string, required string) bool {
	if required == "" {
		return true
	}
	for _, role := range roles {
		if c.HasPermission(role, required) {
			return true
		}
	}
	return false
}
