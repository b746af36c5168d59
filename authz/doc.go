// Package authz maps token roles to resource:action permissions for the
// authorization gate in front of controller routes.
//
// Patterns support wildcards on either side of the separator:
//
//	checker := authz.NewMapChecker(map[string][]string{
//	    "admin":  {"*:*"},
//	    "editor": {"article:*", "media:read"},
//	    "viewer": {"*:read"},
//	})
//
//	authz.Allowed(checker, claims.Roles, "article:delete")
package authz
