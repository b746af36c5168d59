package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/mywebapi/di"
	"github.com/kbukum/mywebapi/logger"
)

// Option configures the App during creation. Options are not generic so
// they work with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	container       di.Container
	gracefulTimeout *time.Duration
	summaryOut      io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger instead of initializing one from
// the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithContainer uses an existing DI container, typically the one the
// application builder has already populated.
func WithContainer(c di.Container) Option {
	return func(o *appOptions) { o.container = c }
}

// WithSummaryWriter redirects the startup summary; io.Discard silences it.
func WithSummaryWriter(w io.Writer) Option {
	return func(o *appOptions) { o.summaryOut = w }
}
