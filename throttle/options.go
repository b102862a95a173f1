package throttle

import (
	"log/slog"
)

// Option configures a [Service] or [Layer].
type Option func(*options)

type options struct {
	logFn   func() *slog.Logger
	metrics *Metrics
}

// WithLogger logs waits on an exhausted bucket to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logFn = func() *slog.Logger { return logger }
	}
}

// WithLoggerFunc resolves the logger lazily at call time, making option
// ordering in callers irrelevant. A nil-returning fn disables logging.
func WithLoggerFunc(fn func() *slog.Logger) Option {
	return func(o *options) {
		o.logFn = fn
	}
}

// WithMetrics records admissions into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func applyOptions(optFns []Option) options {
	var opts options
	for _, opt := range optFns {
		if opt != nil {
			opt(&opts)
		}
	}

	return opts
}
