package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/mywebapi/app"
	"github.com/kbukum/mywebapi/controller"
)

// controllers are the controllers served under /api. The host ships none.
var controllers []controller.Controller

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP(S) listeners (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	a, err := buildApp(cmd.Flags())
	if err != nil {
		return err
	}
	return a.Run(cmd.Context())
}

// buildApp sets up the host: docs, the root redirect, HTTPS redirection,
// authorization and the controllers, in that order.
func buildApp(flags *pflag.FlagSet, opts ...app.Option) (*app.App, error) {
	b, err := app.NewBuilder(nil, append([]app.Option{app.WithFlagSet(flags)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := b.AddControllers(controllers...); err != nil {
		return nil, err
	}
	if err := b.AddEndpointsAPIExplorer(); err != nil {
		return nil, err
	}
	if err := b.AddSwaggerGen(); err != nil {
		return nil, err
	}

	a, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := a.UseSwagger(); err != nil {
		return nil, err
	}
	if err := a.UseSwaggerUI(nil); err != nil {
		return nil, err
	}
	a.MapRedirect("/", "/swagger")
	a.UseHTTPSRedirection()
	if err := a.UseAuthorization(); err != nil {
		return nil, err
	}
	if err := a.MapControllers(); err != nil {
		return nil, err
	}
	return a, nil
}
