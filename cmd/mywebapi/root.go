package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/mywebapi/app"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mywebapi",
		Short:        "Web API host with OpenAPI docs, HTTPS redirection and bearer authorization",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	app.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(serveCmd(), openapiCmd(), tokenCmd(), versionCmd())
	return cmd
}
