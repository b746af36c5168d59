// Package app is the web API host: a Builder that loads configuration and
// fills the service registry, and an App whose Use and Map methods set up
// the request pipeline before Run starts the listeners.
//
//	b, err := app.NewBuilder(os.Args[1:])
//	if err != nil { ... }
//	_ = b.AddControllers(items)
//	_ = b.AddEndpointsAPIExplorer()
//	_ = b.AddSwaggerGen()
//
//	a, err := b.Build()
//	_ = a.UseSwagger()
//	_ = a.UseSwaggerUI(nil)
//	a.MapRedirect("/", "/swagger")
//	a.UseHTTPSRedirection()
//	_ = a.UseAuthorization()
//	_ = a.MapControllers()
//	err = a.Run(ctx)
package app
