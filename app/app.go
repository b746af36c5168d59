package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/authz"
	"github.com/kbukum/mywebapi/bootstrap"
	"github.com/kbukum/mywebapi/controller"
	"github.com/kbukum/mywebapi/di"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/openapi"
	"github.com/kbukum/mywebapi/server"
	"github.com/kbukum/mywebapi/util"
)

// APIPrefix is where controller routes are mounted.
const APIPrefix = "/api"

// ErrControllersNotRegistered is returned by MapControllers when
// AddControllers was never called.
var ErrControllersNotRegistered = errors.New("controllers not registered: call AddControllers")

// App is the built host. The Use* and Map* methods configure the request
// pipeline and must be called before Run.
type App struct {
	cfg       *Config
	log       *logger.Logger
	container di.Container
	server    *server.Server
	boot      *bootstrap.App[*Config]
	docs      *openapi.Docs

	gate controller.Gate
}

// Config returns the host configuration.
func (a *App) Config() *Config { return a.cfg }

// Services returns the service registry.
func (a *App) Services() di.Container { return a.container }

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Lifecycle returns the underlying bootstrap app, for hooks.
func (a *App) Lifecycle() *bootstrap.App[*Config] { return a.boot }

// Handler returns the full request pipeline without binding a port.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// UseSwagger serves the schema document at
// /swagger/<document_name>/swagger.json and registers it with swag.
func (a *App) UseSwagger() error {
	if !a.cfg.Docs.Enabled {
		a.log.Info("API documentation disabled")
		return nil
	}
	gen, err := di.Resolve[*openapi.Generator](a.container, di.Host.SwaggerGen)
	if err != nil {
		return fmt.Errorf("swagger: %w", err)
	}
	openapi.Register(gen.Name(), gen)
	a.docs.AddDocument(gen.Name(), openapi.SchemaHandler(gen))
	a.docs.Mount(a.server.Engine())
	return nil
}

// UseSwaggerUI serves the documentation UI under /swagger. fn may adjust
// the UI settings, which default to the registered document.
//
//	a.UseSwaggerUI(func(c *openapi.UIConfig) { c.DocExpansion = "none" })
func (a *App) UseSwaggerUI(fn func(*openapi.UIConfig)) error {
	if !a.cfg.Docs.Enabled {
		return nil
	}
	name := a.cfg.Docs.DocumentName
	ui := openapi.DefaultUIConfig()
	ui.DocumentURL = openapi.DocumentPath(a.docs.Prefix(), name)
	ui.DocumentName = name
	if fn != nil {
		fn(&ui)
	}
	if ui.DocumentURL == "" {
		return fmt.Errorf("swagger ui: document url is empty")
	}
	a.docs.SetUI(openapi.UIHandler(ui))
	a.docs.Mount(a.server.Engine())
	return nil
}

// MapGet routes GET path to h. It is anonymous and, when the explorer is
// registered, documented.
func (a *App) MapGet(path string, h gin.HandlerFunc) error {
	a.server.Engine().GET(path, h)
	if explorer, ok := di.TryResolve[*openapi.Explorer](a.container, di.Host.APIExplorer); ok {
		return explorer.Record(openapi.Endpoint{Method: http.MethodGet, Path: path})
	}
	return nil
}

// MapRedirect answers GET from with a 307 to to.
func (a *App) MapRedirect(from, to string) {
	a.server.Engine().GET(from, func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, to)
	})
}

// UseHTTPSRedirection redirects every plain request to HTTPS, whatever
// server.https_redirect.enabled says.
func (a *App) UseHTTPSRedirection() {
	a.server.UseHTTPSRedirection()
}

// UseAuthorization puts the bearer token gate in front of the controller
// routes mapped afterwards. With auth disabled routes stay open and a
// warning is logged.
func (a *App) UseAuthorization() error {
	if !a.cfg.Auth.Enabled {
		a.log.Warn("Authorization disabled, controller routes are open")
		return nil
	}
	if a.gate.Validator != nil {
		return nil
	}
	tokens, err := di.Resolve[*TokenService](a.container, di.Host.TokenService)
	if err != nil {
		return fmt.Errorf("authorization: %w", err)
	}
	checker, err := di.Resolve[*authz.MapChecker](a.container, di.Host.Authorizer)
	if err != nil {
		return fmt.Errorf("authorization: %w", err)
	}
	a.gate = controller.Gate{Validator: auth.TokenValidatorFunc(tokens.Parse), Checker: checker}

	fields := logger.Fields("auth", a.cfg.Auth.Describe())
	if secret := a.cfg.Auth.JWT.Secret; secret != "" {
		fields["secret"] = util.MaskSecret(secret, 3)
	}
	a.log.Info("Authorization enabled", fields)
	return nil
}

// MapControllers mounts every registered controller under /api. With auth
// enabled the gate is installed here if UseAuthorization has not run yet.
func (a *App) MapControllers() error {
	if !a.container.Has(di.Host.Controllers) {
		return ErrControllersNotRegistered
	}
	registry, err := di.Resolve[*controller.Registry](a.container, di.Host.Controllers)
	if err != nil {
		return err
	}
	if a.cfg.Auth.Enabled && a.gate.Validator == nil {
		if err := a.UseAuthorization(); err != nil {
			return err
		}
	}
	explorer, _ := di.TryResolve[*openapi.Explorer](a.container, di.Host.APIExplorer)
	if err := registry.Map(a.server.Engine().Group(APIPrefix), explorer, a.gate); err != nil {
		return fmt.Errorf("map controllers: %w", err)
	}
	a.log.Info("Controllers mapped", logger.Fields(
		"controllers", len(registry.Controllers()),
		"routes", registry.Len(),
		"authorization", a.gate.Validator != nil,
	))
	return nil
}

// Run starts the components and blocks until SIGINT, SIGTERM, ctx
// cancellation or a listener failure, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	return a.boot.Run(ctx)
}
