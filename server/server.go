package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apperrors "github.com/kbukum/mywebapi/errors"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/security"
	"github.com/kbukum/mywebapi/server/endpoint"
	"github.com/kbukum/mywebapi/server/middleware"
)

const defaultShutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithErrorHandler receives errors from listeners that stop unexpectedly
// after Start returned.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Server) { s.onError = fn }
}

// WithMetricsSource records the OTel request instruments from src.
func WithMetricsSource(src middleware.MetricsSource) Option {
	return func(s *Server) { s.metricsSource = src }
}

// WithRateLimitKey overrides how clients are told apart for rate limiting.
func WithRateLimitKey(fn middleware.KeyFunc) Option {
	return func(s *Server) { s.rateLimitKey = fn }
}

// Server is an HTTP server backed by Gin on an http.ServeMux, with h2c on
// the plain listener and an optional TLS listener. The middleware pipeline
// wraps the whole mux, so it also covers unmatched routes and extra
// handlers mounted with Handle.
type Server struct {
	config Config
	log    *logger.Logger
	engine *gin.Engine
	mux    *http.ServeMux
	h2s    *http2.Server
	tls    *security.ServerTLS

	registry      *prometheus.Registry
	httpMetrics   *middleware.HTTPMetrics
	limiter       *middleware.RateLimiter
	rateLimitKey  middleware.KeyFunc
	metricsSource middleware.MetricsSource
	onError       func(error)
	forceRedirect bool

	mu          sync.Mutex
	running     bool
	httpServer  *http.Server
	httpsServer *http.Server
	httpAddr    string
	httpsAddr   string
}

// New creates a Server. cfg should already have defaults applied. TLS
// material is loaded here so a bad certificate fails before any port is
// bound.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if gin.Mode() != gin.TestMode {
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	serverTLS, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := middleware.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("server: register metrics: %w", err)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(middleware.CaptureRoute())
	engine.NoRoute(func(c *gin.Context) {
		err := apperrors.NotFound("route")
		c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
	})
	engine.NoMethod(func(c *gin.Context) {
		err := apperrors.MethodNotAllowed(c.Request.Method)
		c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
	})

	mux := http.NewServeMux()
	mux.Handle("/", engine)

	s := &Server{
		config: cfg,
		log:    log.WithComponent("server"),
		engine: engine,
		mux:    mux,
		h2s: &http2.Server{
			MaxConcurrentStreams: 250,
			IdleTimeout:          120 * time.Second,
		},
		tls:         serverTLS,
		registry:    registry,
		httpMetrics: httpMetrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit.Enabled {
		key := s.rateLimitKey
		if key == nil {
			key = middleware.ClientIPKey(cfg.HTTPSRedirect.TrustForwardedHeaders)
		}
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, key)
	}
	return s, nil
}

// Engine returns the Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Registry returns the Prometheus registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Config returns the server configuration.
func (s *Server) Config() Config {
	return s.config
}

// Handle mounts an http.Handler at the given pattern on the root ServeMux,
// next to the Gin engine. The pipeline still applies.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("Handler mounted", map[string]interface{}{
		"pattern": pattern,
	})
}

// UseHTTPSRedirection turns on the insecure-to-secure redirect regardless
// of server.https_redirect.enabled. Call it before Start.
func (s *Server) UseHTTPSRedirection() {
	s.mu.Lock()
	s.forceRedirect = true
	s.mu.Unlock()
}

// RedirectsToHTTPS reports whether the redirect middleware is installed.
func (s *Server) RedirectsToHTTPS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceRedirect || s.config.HTTPSRedirect.Enabled
}

// RegisterSystemEndpoints registers /health, /liveness, /readiness, /info,
// /version and /metrics.
func (s *Server) RegisterSystemEndpoints(serviceName, environment string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/liveness", endpoint.Liveness(serviceName))
	s.engine.GET("/readiness", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/info", endpoint.Info(serviceName, environment))
	s.engine.GET("/version", endpoint.Version())
	s.engine.GET("/metrics", endpoint.Metrics(s.registry))
}

// Handler returns the mux wrapped in the request pipeline: recovery,
// request id, logging, tracing, metrics, HTTPS redirect, HSTS, CORS, rate
// limit and body size limit, outermost first.
func (s *Server) Handler() http.Handler {
	trust := s.config.HTTPSRedirect.TrustForwardedHeaders
	mws := []middleware.Middleware{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
		middleware.Tracing(s.metricsSource),
		middleware.Metrics(s.httpMetrics),
	}
	if s.RedirectsToHTTPS() {
		mws = append(mws, middleware.HTTPSRedirect(s.config.HTTPSRedirect, s.httpsPort(), s.log))
	}
	if s.config.HSTS.Enabled {
		mws = append(mws, middleware.HSTS(s.config.HSTS, trust))
	}
	mws = append(mws, middleware.CORS(&s.config.CORS))
	if s.limiter != nil {
		mws = append(mws, s.limiter.Middleware())
	}
	if limit := s.config.bodyLimit(); limit > 0 {
		mws = append(mws, middleware.BodySizeLimit(limit))
	}
	return middleware.Chain(mws...)(s.mux)
}

// httpsPort is the bound TLS port once listening, else the configured one.
func (s *Server) httpsPort() int {
	s.mu.Lock()
	addr := s.httpsAddr
	s.mu.Unlock()
	if addr != "" {
		if _, p, err := net.SplitHostPort(addr); err == nil {
			if port, err := strconv.Atoi(p); err == nil {
				return port
			}
		}
	}
	return s.config.HTTPSPort
}

// Start binds the ports and begins serving. It returns once the listeners
// are bound; serving continues in goroutines.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server: already started")
	}

	httpAddr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("server failed to bind %s: %w", httpAddr, err)
	}
	var httpsLn net.Listener
	if s.tls != nil {
		httpsAddr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.HTTPSPort))
		httpsLn, err = net.Listen("tcp", httpsAddr)
		if err != nil {
			_ = httpLn.Close()
			s.mu.Unlock()
			return fmt.Errorf("server failed to bind %s: %w", httpsAddr, err)
		}
		s.httpsAddr = httpsLn.Addr().String()
	}
	s.httpAddr = httpLn.Addr().String()
	s.running = true
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Start()
	}

	handler := s.Handler()
	httpServer := s.newHTTPServer(h2c.NewHandler(s.tls.HTTPHandler(handler), s.h2s))
	var httpsServer *http.Server
	if httpsLn != nil {
		httpsServer = s.newHTTPServer(handler)
		httpsServer.TLSConfig = s.tls.Config
	}

	s.mu.Lock()
	s.httpServer, s.httpsServer = httpServer, httpsServer
	fields := map[string]interface{}{"addr": s.httpAddr}
	if httpsServer != nil {
		fields["tls_addr"] = s.httpsAddr
	}
	s.mu.Unlock()

	go s.serve(httpServer, httpLn, false)
	if httpsServer != nil {
		go s.serve(httpsServer, httpsLn, true)
	}
	s.log.Info("HTTP server started", fields)
	return nil
}

func (s *Server) newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:      h,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.IdleTimeout) * time.Second,
	}
}

func (s *Server) serve(srv *http.Server, ln net.Listener, secure bool) {
	var err error
	if secure {
		err = srv.ServeTLS(ln, "", "")
	} else {
		err = srv.Serve(ln)
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	s.log.Error("Server error", map[string]interface{}{
		"error": err.Error(),
		"addr":  ln.Addr().String(),
	})
	if s.onError != nil {
		s.onError(fmt.Errorf("server: listener %s: %w", ln.Addr(), err))
	}
}

// Stop gracefully shuts down both listeners within the shutdown timeout and
// stops the rate limiter sweep.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	servers := []*http.Server{s.httpServer, s.httpsServer}
	s.running = false
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}

	timeout := time.Duration(s.config.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server", map[string]interface{}{"timeout": timeout.String()})
	var errs []error
	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Error("Server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound HTTP address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpAddr != "" {
		return s.httpAddr
	}
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// TLSAddr returns the HTTPS address, empty when TLS is not configured.
func (s *Server) TLSAddr() string {
	if s.tls == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpsAddr != "" {
		return s.httpsAddr
	}
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.HTTPSPort))
}
