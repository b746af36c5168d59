package controller

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/authz"
	"github.com/kbukum/mywebapi/openapi"
	"github.com/kbukum/mywebapi/server/middleware"
	"github.com/kbukum/mywebapi/validation"
)

// Gate is the authorization applied to mapped routes. A nil Validator maps
// every route without a token check.
type Gate struct {
	Validator auth.TokenValidator
	Checker   authz.Checker
}

// Registry holds the controllers to dispatch to. It is safe for concurrent
// use.
type Registry struct {
	mu          sync.Mutex
	controllers []Controller
	names       map[string]struct{}
	// "METHOD /template" -> controller name
	routes map[string]string
	mapped bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:  make(map[string]struct{}),
		routes: make(map[string]string),
	}
}

// Add registers controllers. It fails on a duplicate controller name, a
// method+path pair already taken, a route without a handler or an invalid
// permission, and after Map. A failing controller adds none of its routes.
func (r *Registry) Add(ctrls ...Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapped {
		return fmt.Errorf("controller: registry already mapped")
	}

	for _, c := range ctrls {
		name := c.Name()
		if name == "" {
			return fmt.Errorf("controller: %T has an empty name", c)
		}
		if _, ok := r.names[name]; ok {
			return fmt.Errorf("controller: duplicate controller %q", name)
		}

		keys := make(map[string]struct{})
		for _, rt := range c.Routes() {
			if rt.Handler == nil {
				return fmt.Errorf("controller %q: %s %s has no handler", name, rt.method(), rt.Path)
			}
			if rt.Permission != "" && !validation.IsPermission(rt.Permission) {
				return fmt.Errorf("controller %q: %s %s: %q is not a resource:action permission",
					name, rt.method(), rt.Path, rt.Permission)
			}
			key := routeKey(rt.method(), joinPath(basePath(c), rt.Path))
			if owner, ok := r.routes[key]; ok {
				return fmt.Errorf("controller %q: route %s already registered by %q", name, key, owner)
			}
			if _, ok := keys[key]; ok {
				return fmt.Errorf("controller %q: route %s registered twice", name, key)
			}
			keys[key] = struct{}{}
		}

		for key := range keys {
			r.routes[key] = name
		}
		r.names[name] = struct{}{}
		r.controllers = append(r.controllers, c)
	}
	return nil
}

// routeKey identifies a route by method and path shape, so "/items/:id"
// and "/items/:key" collide.
func routeKey(method, path string) string {
	segments := strings.Split(openapi.TemplatePath(path), "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") {
			segments[i] = "{}"
		}
	}
	return method + " " + strings.Join(segments, "/")
}

// Controllers returns the registered controllers sorted by name.
func (r *Registry) Controllers() []Controller {
	r.mu.Lock()
	out := append([]Controller(nil), r.controllers...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}

// Map mounts every route on group, wrapping handlers that are not
// AllowAnonymous with the authorization gate, and records each route with
// explorer when it is not nil. Map runs once; later Add calls fail.
func (r *Registry) Map(group *gin.RouterGroup, explorer *openapi.Explorer, gate Gate) (err error) {
	r.mu.Lock()
	if r.mapped {
		r.mu.Unlock()
		return fmt.Errorf("controller: registry already mapped")
	}
	r.mapped = true
	ctrls := append([]Controller(nil), r.controllers...)
	r.mu.Unlock()

	defer func() {
		// Gin panics on conflicting wildcard names at the same position.
		if p := recover(); p != nil {
			err = fmt.Errorf("controller: %v", p)
		}
	}()

	for _, c := range ctrls {
		for _, rt := range c.Routes() {
			rel := joinPath(basePath(c), rt.Path)
			secured := gate.Validator != nil && !rt.AllowAnonymous

			handlers := make([]gin.HandlerFunc, 0, 2)
			if secured {
				handlers = append(handlers, middleware.Authorize(gate.Validator, gate.Checker, rt.Permission))
			}
			handlers = append(handlers, rt.Handler)
			// Gin keeps the trailing slash of "/", which would mount a
			// controller root at "/api/" while it is documented as "/api".
			mount := rel
			if mount == "/" {
				mount = ""
			}
			group.Handle(rt.method(), mount, handlers...)

			if explorer == nil {
				continue
			}
			tags := rt.Tags
			if len(tags) == 0 {
				tags = []string{c.Name()}
			}
			ep := openapi.Endpoint{
				Method:      rt.method(),
				Path:        joinPath(group.BasePath(), rel),
				Summary:     rt.Summary,
				Description: rt.Description,
				Tags:        tags,
				Secured:     secured,
				Request:     rt.Request,
				Response:    rt.Response,
				Status:      rt.Status,
			}
			if secured {
				ep.Permission = rt.Permission
			}
			if err := explorer.Record(ep); err != nil {
				return err
			}
		}
	}
	return nil
}
