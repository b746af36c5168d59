// Package auth holds the authentication contracts of the MyWebAPI host.
//
//   - auth/jwt     signs and parses JWT access tokens (golang-jwt/v5)
//   - auth/authctx carries the validated claims on a request context
//
// Claims is the single token payload the host understands: registered claims
// plus a list of roles. Roles are mapped to resource:action permissions by
// authz.MapChecker, configured under auth.roles.
//
//	svc, err := jwt.NewService(&cfg.Auth.JWT, func() *auth.Claims { return &auth.Claims{} })
//	token, err := svc.GenerateAccess(auth.NewClaims("user-1", "admin"))
//	validator := auth.TokenValidatorFunc(svc.Parse)
package auth
