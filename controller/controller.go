package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Controller groups routes under one name.
type Controller interface {
	Name() string
	Routes() []Route
}

// BasePather is implemented by controllers that mount their routes below a
// path of their own, e.g. "/items".
type BasePather interface {
	BasePath() string
}

// Route is one controller endpoint.
type Route struct {
	Method string
	// Path is relative to the controller base path. Gin ":param" and
	// "*wildcard" segments are allowed.
	Path    string
	Handler gin.HandlerFunc

	Summary     string
	Description string
	Tags        []string

	// Permission is an optional resource:action string the caller's roles
	// must grant.
	Permission string
	// AllowAnonymous skips the bearer token check.
	AllowAnonymous bool

	// Request and Response are sample values describing the body (query for
	// GET) and the success payload in the schema document.
	Request  any
	Response any
	// Status is the documented success status, 200 when zero.
	Status int
}

func (r Route) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func basePath(c Controller) string {
	if bp, ok := c.(BasePather); ok {
		return bp.BasePath()
	}
	return ""
}

// joinPath joins a controller base and a route path, keeping a trailing
// slash on the route.
func joinPath(base, p string) string {
	joined := "/" + strings.Trim(strings.Trim(base, "/")+"/"+strings.TrimPrefix(p, "/"), "/")
	if len(p) > 1 && strings.HasSuffix(p, "/") && joined != "/" {
		joined += "/"
	}
	return joined
}
