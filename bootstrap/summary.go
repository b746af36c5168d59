package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/mywebapi/component"
	"github.com/kbukum/mywebapi/di"
)

// InfrastructureInfo describes a lifecycle component in the summary.
type InfrastructureInfo struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// RouteInfo represents a mapped HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary collects and prints what the application started with.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer

	infrastructure []InfrastructureInfo
	services       []di.RegistrationInfo
	routes         []RouteInfo
	health         []component.Health
}

// NewSummary creates a summary printed to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records a route that is not reported by a RouteProvider.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// collect gathers components, routes and health from the registry and the
// registered services from the container. Either may be nil.
func (s *Summary) collect(ctx context.Context, registry *component.Registry, container di.Container) {
	if container != nil {
		s.services = container.Registrations()
	}
	if registry == nil {
		return
	}
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name == "" {
				desc.Name = c.Name()
			}
			s.infrastructure = append(s.infrastructure, InfrastructureInfo{
				Name: desc.Name, Type: desc.Type, Details: desc.Details, Port: desc.Port,
			})
		}
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				s.TrackRoute(r.Method, r.Path, r.Handler)
			}
		}
	}
	s.health = registry.HealthAll(ctx)
}

// DisplaySummary collects from the registry and container and prints the
// summary.
func (s *Summary) DisplaySummary(ctx context.Context, registry *component.Registry, container di.Container) {
	s.collect(ctx, registry, container)
	w := s.out

	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		fmt.Fprintf(w, "\n📊 Infrastructure\n")
		for i, inf := range s.infrastructure {
			details := inf.Details
			if inf.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, inf.Port)
			}
			fmt.Fprintf(w, "   %s %s [%s]: %s\n", treePrefix(i, len(s.infrastructure)), inf.Name, inf.Type, details)
		}
	}

	if len(s.services) > 0 {
		fmt.Fprintf(w, "\n📦 Services (%d)\n", len(s.services))
		for i, svc := range s.services {
			fmt.Fprintf(w, "   %s %s %s (%s)\n", treePrefix(i, len(s.services)),
				serviceIcon(svc), svc.Key, svc.Mode)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %s%-7s\033[0m %s → %s\n", treePrefix(i, len(s.routes)),
				methodColor(r.Method), r.Method, r.Path, r.Handler)
		}
	}

	if len(s.health) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		for i, h := range s.health {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(s.health)),
				healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func serviceIcon(info di.RegistrationInfo) string {
	if !info.Initialized {
		return "⚡"
	}
	return "✅"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}

func methodColor(method string) string {
	switch method {
	case "GET":
		return "\033[32m"
	case "POST":
		return "\033[33m"
	case "PUT", "PATCH":
		return "\033[34m"
	case "DELETE":
		return "\033[31m"
	default:
		return "\033[36m"
	}
}
