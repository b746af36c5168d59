package app

import (
	"context"
	"fmt"

	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/auth/jwt"
	"github.com/kbukum/mywebapi/authz"
	"github.com/kbukum/mywebapi/bootstrap"
	"github.com/kbukum/mywebapi/component"
	"github.com/kbukum/mywebapi/config"
	"github.com/kbukum/mywebapi/controller"
	"github.com/kbukum/mywebapi/di"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/observability"
	"github.com/kbukum/mywebapi/openapi"
	"github.com/kbukum/mywebapi/server"
)

// TokenService signs and parses the host's bearer tokens.
type TokenService = jwt.Service[*auth.Claims]

// Builder assembles the configuration and the service registry before the
// request pipeline is built.
//
//	b, err := app.NewBuilder(os.Args[1:])
//	_ = b.AddControllers(items)
//	_ = b.AddEndpointsAPIExplorer()
//	_ = b.AddSwaggerGen()
//	a, err := b.Build()
type Builder struct {
	cfg       *Config
	log       *logger.Logger
	container di.Container
	opts      builderOptions
	built     bool
}

// NewBuilder parses args, loads the configuration from config.yml, .env,
// the environment and the flags, applies defaults and validates it. The
// config, logger and, when auth is enabled, the token service and the
// authorizer are registered in the container.
func NewBuilder(args []string, opts ...Option) (*Builder, error) {
	var o builderOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		fs := o.flags
		if fs == nil {
			var err error
			if fs, err = parseFlags(args); err != nil {
				return nil, err
			}
		}
		cfg = DefaultConfig()
		loader := append(loaderOptions(fs), o.loader...)
		if err := config.LoadConfig(ServiceName, cfg, loader...); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log := o.logger
	if log == nil {
		logger.Init(&cfg.Logging)
		log = logger.GetGlobalLogger()
	}

	b := &Builder{cfg: cfg, log: log, container: di.NewContainer(), opts: o}
	if err := b.registerHostServices(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) registerHostServices() error {
	if err := b.container.RegisterSingleton(di.Host.Config, b.cfg); err != nil {
		return err
	}
	if err := b.container.RegisterSingleton(di.Host.Logger, b.log); err != nil {
		return err
	}
	if !b.cfg.Auth.Enabled {
		return nil
	}
	authCfg := b.cfg.Auth
	if err := b.container.RegisterEager(di.Host.TokenService, func() (*TokenService, error) {
		return jwt.NewService(&authCfg.JWT, func() *auth.Claims { return &auth.Claims{} })
	}); err != nil {
		return err
	}
	return b.container.RegisterSingleton(di.Host.Authorizer, authz.NewMapChecker(authCfg.Roles))
}

// Config returns the loaded configuration.
func (b *Builder) Config() *Config { return b.cfg }

// Logger returns the host logger.
func (b *Builder) Logger() *logger.Logger { return b.log }

// Services returns the service registry.
func (b *Builder) Services() di.Container { return b.container }

// AddControllers registers the controller dispatcher, once, and adds ctrls
// to it.
func (b *Builder) AddControllers(ctrls ...controller.Controller) error {
	if !b.container.Has(di.Host.Controllers) {
		if err := b.container.RegisterSingleton(di.Host.Controllers, controller.NewRegistry()); err != nil {
			return err
		}
	}
	registry, err := di.Resolve[*controller.Registry](b.container, di.Host.Controllers)
	if err != nil {
		return err
	}
	return registry.Add(ctrls...)
}

// AddEndpointsAPIExplorer registers the explorer that records mapped
// routes for the schema document.
func (b *Builder) AddEndpointsAPIExplorer() error {
	if b.container.Has(di.Host.APIExplorer) {
		return nil
	}
	return b.container.RegisterSingleton(di.Host.APIExplorer, openapi.NewExplorer())
}

// AddSwaggerGen registers the schema generator. It is built on first use
// from the explorer and the docs section; opts override the latter.
func (b *Builder) AddSwaggerGen(opts ...openapi.Option) error {
	if b.container.Has(di.Host.SwaggerGen) {
		return nil
	}
	docs := b.cfg.Docs
	base := []openapi.Option{
		openapi.WithInfo(openapi.Info{Title: docs.Title, Version: docs.Version, Description: docs.Description}),
		openapi.WithDocumentName(docs.DocumentName),
	}
	opts = append(base, opts...)
	return b.container.RegisterLazy(di.Host.SwaggerGen, func(c di.Container) (*openapi.Generator, error) {
		explorer, err := di.Resolve[*openapi.Explorer](c, di.Host.APIExplorer)
		if err != nil {
			return nil, fmt.Errorf("swagger generator needs the endpoint explorer: %w", err)
		}
		return openapi.NewGenerator(explorer, opts...), nil
	})
}

// Build creates the HTTP server and the lifecycle around it. The telemetry
// component starts before the server and stops after it.
func (b *Builder) Build() (*App, error) {
	if b.built {
		return nil, fmt.Errorf("app: builder already built")
	}

	bootOpts := []bootstrap.Option{
		bootstrap.WithLogger(b.log),
		bootstrap.WithContainer(b.container),
	}
	if b.opts.summaryOut != nil {
		bootOpts = append(bootOpts, bootstrap.WithSummaryWriter(b.opts.summaryOut))
	}
	boot, err := bootstrap.NewApp(b.cfg, bootOpts...)
	if err != nil {
		return nil, err
	}

	telemetry := observability.NewComponent(b.cfg.Telemetry, observability.ServiceInfo{
		Name:        b.cfg.Name,
		Version:     b.cfg.Version,
		Environment: b.cfg.Environment,
	}, b.log)

	srvOpts := append([]server.Option{
		server.WithErrorHandler(boot.Fail),
		server.WithMetricsSource(telemetry),
	}, b.opts.server...)
	srv, err := server.New(b.cfg.Server, b.log, srvOpts...)
	if err != nil {
		return nil, err
	}

	if err := boot.RegisterComponent(telemetry); err != nil {
		return nil, err
	}
	if err := boot.RegisterComponent(server.NewComponent(srv)); err != nil {
		return nil, err
	}
	if err := b.container.RegisterSingleton(di.Host.HTTPServer, srv); err != nil {
		return nil, err
	}

	srv.RegisterSystemEndpoints(b.cfg.Name, b.cfg.Environment, func(ctx context.Context) []component.Health {
		return boot.Components.HealthAll(ctx)
	})

	b.built = true
	return &App{
		cfg:       b.cfg,
		log:       b.log.WithComponent("app"),
		container: b.container,
		server:    srv,
		boot:      boot,
		docs:      openapi.NewDocs(openapi.DefaultPrefix),
	}, nil
}
