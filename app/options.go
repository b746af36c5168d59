package app

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/kbukum/mywebapi/config"
	"github.com/kbukum/mywebapi/logger"
	"github.com/kbukum/mywebapi/server"
)

// Option configures the Builder.
type Option func(*builderOptions)

type builderOptions struct {
	flags      *pflag.FlagSet
	loader     []config.LoaderOption
	cfg        *Config
	logger     *logger.Logger
	server     []server.Option
	summaryOut io.Writer
}

// WithFlagSet reads the host flags from an already parsed set, such as a
// cobra command's, instead of parsing args. The set must carry the flags
// added by RegisterFlags.
func WithFlagSet(fs *pflag.FlagSet) Option {
	return func(o *builderOptions) { o.flags = fs }
}

// WithLoaderOptions passes extra options to config.LoadConfig.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *builderOptions) { o.loader = append(o.loader, opts...) }
}

// WithConfig uses cfg as loaded instead of reading files, environment and
// flags. Defaults and validation still apply.
func WithConfig(cfg *Config) Option {
	return func(o *builderOptions) { o.cfg = cfg }
}

// WithLogger uses l instead of initializing the global logger from the
// logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *builderOptions) { o.logger = l }
}

// WithServerOptions passes extra options to server.New.
func WithServerOptions(opts ...server.Option) Option {
	return func(o *builderOptions) { o.server = append(o.server, opts...) }
}

// WithSummaryWriter redirects the startup summary.
func WithSummaryWriter(w io.Writer) Option {
	return func(o *builderOptions) { o.summaryOut = w }
}
