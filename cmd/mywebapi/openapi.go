package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/mywebapi/app"
	"github.com/kbukum/mywebapi/di"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/openapi"
)

func openapiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the schema document served at /swagger/<name>/swagger.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Flags(), app.WithLogger(logger.NewNop()))
			if err != nil {
				return err
			}
			gen, err := di.Resolve[*openapi.Generator](a.Services(), di.Host.SwaggerGen)
			if err != nil {
				return err
			}
			data, err := gen.JSON()
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, data, "", "  "); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return err
		},
	}
}
