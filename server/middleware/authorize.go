package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/auth/authctx"
	"github.com/kbukum/mywebapi/auth/jwt"
	"github.com/kbukum/mywebapi/authz"
	apperrors "github.com/kbukum/mywebapi/errors"
	"github.com/kbukum/mywebapi/logger"
)

// ClaimsKey is the Gin context key holding the validated *auth.Claims.
const ClaimsKey = "auth.claims"

// Authorize returns a per-route gate that requires a valid bearer token and,
// when permission is set, a role granting it. On success the claims are
// stored on the request context (authctx) and on the Gin context.
//
//	401 UNAUTHORIZED   missing or malformed Authorization header
//	401 TOKEN_EXPIRED  expired token
//	401 INVALID_TOKEN  bad signature, issuer, audience or algorithm
//	403 FORBIDDEN      no role grants permission
func Authorize(validator auth.TokenValidator, checker authz.Checker, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			challenge(c, "")
			abortWithError(c, apperrors.Unauthorized(""))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			challenge(c, "invalid_token")
			if jwt.IsExpired(err) {
				abortWithError(c, apperrors.TokenExpired())
			} else {
				abortWithError(c, apperrors.InvalidToken())
			}
			return
		}

		if permission != "" && (checker == nil || !authz.Allowed(checker, claims.Roles, permission)) {
			abortWithError(c, apperrors.Forbidden("").WithDetail("permission", permission))
			return
		}

		ctx := authctx.Set(c.Request.Context(), claims)
		ctx = logger.ContextWith(ctx, logger.FieldUserID, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func challenge(c *gin.Context, errCode string) {
	v := "Bearer"
	if errCode != "" {
		v += ` error="` + errCode + `"`
	}
	c.Header("WWW-Authenticate", v)
}

func abortWithError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
