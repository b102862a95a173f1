// Package retry provides an rpc.Layer that re-sends calls failing with a
// transient error, backing off exponentially between attempts.
//
// It stacks with the throttle layer in either order. Placed inside the
// throttle, retries are free; placed outside, every attempt waits for
// admission.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/adamwoolhether/rpcthrottle/rpc"
)

var ErrInvalidConfig = errors.New("invalid retry configuration")

// DefaultCodes are the JSON-RPC error codes node providers use to signal
// rate limiting.
var DefaultCodes = []int{429, -32005, -32016}

// Retryable is implemented by errors that know whether a retry may
// succeed, such as transport status errors.
type Retryable interface {
	error
	Retryable() bool
}

// retryAfter is implemented by errors carrying a server-suggested delay.
type retryAfter interface {
	error
	RetryAfter() time.Duration
}

// Layer builds retrying Services.
type Layer struct {
	maxRetries     int
	initialBackoff time.Duration
	opts           options
}

var _ rpc.Layer = (*Layer)(nil)

// NewLayer returns a Layer making up to maxRetries extra attempts, the
// first after initialBackoff and each following one after twice the
// previous delay.
func NewLayer(maxRetries int, initialBackoff time.Duration, optFns ...Option) (*Layer, error) {
	if maxRetries < 0 || initialBackoff <= 0 {
		return nil, fmt.Errorf("maxRetries[%d] initialBackoff[%v]: %w", maxRetries, initialBackoff, ErrInvalidConfig)
	}

	opts := options{
		maxBackoff: 10 * time.Second,
		codes:      DefaultCodes,
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying retry option: %w", err)
		}
	}

	l := Layer{
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		opts:           opts,
	}

	return &l, nil
}

// Layer implements rpc.Layer.
func (l *Layer) Layer(inner rpc.Handler) rpc.Handler {
	return &Service{
		inner: inner,
		layer: l,
	}
}

// Service retries calls on its inner handler.
type Service struct {
	inner rpc.Handler
	layer *Layer
}

// Ready delegates to the inner handler.
func (s *Service) Ready(ctx context.Context) error {
	return s.inner.Ready(ctx)
}

// Call sends req, re-sending it while the outcome is retryable and
// attempts remain. The last outcome is returned as is.
func (s *Service) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	backoff := s.layer.initialBackoff

	for attempt := 0; ; attempt++ {
		resp, err := s.inner.Call(ctx, req)
		if attempt >= s.layer.maxRetries || !s.shouldRetry(resp, err) {
			return resp, err
		}

		delay := backoff
		if ra, ok := errors.AsType[retryAfter](err); ok && ra.RetryAfter() > delay {
			delay = ra.RetryAfter()
		}
		delay = min(delay, s.layer.opts.maxBackoff)

		if logger := s.layer.opts.logger; logger != nil {
			logger.Warn("retrying rpc call", "call", req.Method(), "attempt", attempt+1, "backoff", delay.String(), "error", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry backoff: %w", ctx.Err())
		}

		backoff = min(backoff*2, s.layer.opts.maxBackoff)
	}
}

func (s *Service) shouldRetry(resp *rpc.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}

		r, ok := errors.AsType[Retryable](err)
		return ok && r.Retryable()
	}

	if resp == nil {
		return false
	}

	for _, e := range resp.Errors() {
		if slices.Contains(s.layer.opts.codes, e.Code) {
			return true
		}
	}

	return false
}

// Option is a functional option for [NewLayer].
type Option func(*options) error

type options struct {
	maxBackoff time.Duration
	codes      []int
	logger     *slog.Logger
}

// WithMaxBackoff caps the delay between attempts. Defaults to 10s.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("max backoff must be greater than zero")
		}
		o.maxBackoff = d
		return nil
	}
}

// WithCodes replaces the JSON-RPC error codes treated as retryable.
func WithCodes(codes ...int) Option {
	return func(o *options) error {
		o.codes = slices.Clone(codes)
		return nil
	}
}

// WithLogger logs each retry to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
