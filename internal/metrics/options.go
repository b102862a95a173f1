package metrics

import (
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	host            string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// WithHost sets the address the server listens on. Default is "localhost:9090".
func WithHost(host string) Option {
	return func(opts *options) {
		opts.host = host
	}
}

// WithShutdownTimeout bounds how long [Server.Serve] waits for in-flight
// scrapes once its context ends. Default is 5s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.shutdownTimeout = d
	}
}

// WithLogger sets the logger used for server lifecycle events.
// Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}
