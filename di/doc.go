// Package di provides the service registry used by the application builder.
//
// Services are registered under string keys as eager, lazy or singleton
// entries and resolved with the generic helpers:
//
//	_ = c.Register(di.Host.SwaggerGen, func(c di.Container) (*openapi.Generator, error) {
//	    explorer, err := di.Resolve[*openapi.Explorer](c, di.Host.APIExplorer)
//	    ...
//	})
//
//	gen := di.MustResolve[*openapi.Generator](c, di.Host.SwaggerGen)
package di
