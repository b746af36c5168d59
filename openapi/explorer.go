package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Endpoint describes one mapped route for the schema document.
type Endpoint struct {
	Method string
	// Path is the OpenAPI path template, e.g. "/api/items/{id}".
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	// Secured routes require a bearer token.
	Secured    bool
	Permission string
	// Request and Response are sample values whose types describe the
	// request body (or query for GET) and the success response.
	Request  any
	Response any
	// Status is the success status code, 200 when zero.
	Status int
}

// Explorer records the endpoints mapped on the server. It is safe for
// concurrent use.
type Explorer struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	version   uint64
}

// NewExplorer creates an empty explorer.
func NewExplorer() *Explorer {
	return &Explorer{endpoints: make(map[string]Endpoint)}
}

// Record adds an endpoint. Gin paths are converted to templates. Recording
// the same method and path twice is an error.
func (e *Explorer) Record(ep Endpoint) error {
	ep.Method = strings.ToUpper(ep.Method)
	if ep.Method == "" {
		ep.Method = http.MethodGet
	}
	ep.Path = TemplatePath(ep.Path)
	key := ep.Method + " " + ep.Path

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.endpoints[key]; ok {
		return fmt.Errorf("openapi: endpoint %s already recorded", key)
	}
	e.endpoints[key] = ep
	e.version++
	return nil
}

// Endpoints returns the recorded endpoints ordered by path, then method.
func (e *Explorer) Endpoints() []Endpoint {
	e.mu.RLock()
	out := make([]Endpoint, 0, len(e.endpoints))
	for _, ep := range e.endpoints {
		out = append(out, ep)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Len returns the number of recorded endpoints.
func (e *Explorer) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.endpoints)
}

// Version changes every time an endpoint is recorded.
func (e *Explorer) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// TemplatePath converts Gin ":param" and "*param" segments to "{param}".
func TemplatePath(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if len(seg) > 1 && (seg[0] == ':' || seg[0] == '*') {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	out := strings.Join(segments, "/")
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// pathParams returns the parameter names of a path template in order.
func pathParams(template string) []string {
	var names []string
	for _, seg := range strings.Split(template, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, seg[1:len(seg)-1])
		}
	}
	return names
}
