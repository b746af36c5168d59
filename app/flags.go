package app

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kbukum/mywebapi/config"
)

// Flag names accepted on the command line.
const (
	FlagConfig      = "config"
	FlagEnvFile     = "env-file"
	FlagEnvironment = "environment"
	FlagPort        = "port"
	FlagHTTPSPort   = "https-port"
)

// flagKeys maps the flags that override configuration to their keys.
var flagKeys = map[string]string{
	FlagEnvironment: "environment",
	FlagPort:        "server.port",
	FlagHTTPSPort:   "server.https_port",
}

// RegisterFlags adds the host flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to config.yml (searched in standard locations when empty)")
	fs.String(FlagEnvFile, "", "path to a .env file (searched in standard locations when empty)")
	fs.String(FlagEnvironment, "", "environment: development, staging or production")
	fs.Int(FlagPort, 0, "HTTP listen port (overrides server.port)")
	fs.Int(FlagHTTPSPort, 0, "HTTPS listen and redirect port (overrides server.https_port)")
}

// parseFlags parses args into a fresh flag set.
func parseFlags(args []string) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	return fs, nil
}

// loaderOptions turns the file flags into loader options and binds the
// rest as overrides. Flags the user did not set are ignored.
func loaderOptions(fs *pflag.FlagSet) []config.LoaderOption {
	opts := []config.LoaderOption{config.WithFlags(fs, flagKeys)}
	if f := fs.Lookup(FlagConfig); f != nil && f.Changed {
		opts = append(opts, config.WithConfigFile(f.Value.String()))
	}
	if f := fs.Lookup(FlagEnvFile); f != nil && f.Changed {
		opts = append(opts, config.WithEnvFile(f.Value.String()))
	}
	return opts
}
