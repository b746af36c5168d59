package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/mywebapi/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mywebapi %s %s %s\n", info, info.GoVersion, info.Platform)
			return err
		},
	}
}
