// Package bootstrap runs a service through its lifecycle: start components
// in order, run hooks, print a startup summary, wait for SIGINT/SIGTERM and
// shut down within a deadline.
//
//	app, err := bootstrap.NewApp(cfg, bootstrap.WithContainer(services))
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(httpServer)
//	return app.Run(ctx)
package bootstrap
