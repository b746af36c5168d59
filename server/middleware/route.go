package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that reached no registered route, so 404
// probes cannot blow up metric cardinality.
const unmatchedRoute = "unmatched"

// routeHolder carries the matched route template from the Gin engine back
// out to the net/http middleware that wraps it.
type routeHolder struct {
	mu    sync.Mutex
	route string
}

func (h *routeHolder) set(route string) {
	h.mu.Lock()
	h.route = route
	h.mu.Unlock()
}

func (h *routeHolder) get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.route == "" {
		return unmatchedRoute
	}
	return h.route
}

type routeKey struct{}

// withRouteHolder returns r carrying a route holder, reusing one placed by
// an outer middleware.
func withRouteHolder(r *http.Request) (*http.Request, *routeHolder) {
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
		return r, h
	}
	h := &routeHolder{}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, h)), h
}

// CaptureRoute records the matched Gin route template (e.g. "/api/items/:id")
// for Tracing and Metrics. Install it first on the engine.
func CaptureRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h, ok := c.Request.Context().Value(routeKey{}).(*routeHolder); ok {
			h.set(c.FullPath())
		}
		c.Next()
	}
}
