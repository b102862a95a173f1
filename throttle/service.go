package throttle

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/rpcthrottle/rpc"
)

// admitter is the admission phase shared by Service and the
// RoundTripper.
type admitter struct {
	gate    *Gate
	jitter  *Jitter
	logFn   func() *slog.Logger
	metrics *Metrics
}

// admit waits for a token. label is only evaluated when logging, so the
// packet is never read otherwise.
func (a admitter) admit(ctx context.Context, label func() string) error {
	if a.gate == nil {
		return ErrNilGate
	}

	var logger *slog.Logger
	if a.logFn != nil {
		logger = a.logFn()
	}

	// Tokens only reads the bucket, unlike Allow which would consume.
	exhausted := logger != nil && a.gate.Tokens() < 1
	if exhausted {
		logger.Info("throttle tokens exhausted", "rate", a.gate.Limit(), "burst", a.gate.Burst(), "call", label())
	}

	start := time.Now()

	var err error
	if a.jitter != nil {
		err = a.gate.WaitWithJitter(ctx, *a.jitter)
	} else {
		err = a.gate.Wait(ctx)
	}
	waited := time.Since(start)

	a.metrics.observe(waited, err)

	if err != nil {
		if logger != nil {
			logger.Debug("throttle admission abandoned", "waited", waited.String(), "call", label(), "reason", err)
		}
		return err
	}

	if exhausted {
		logger.Info("throttle wait complete", "waited", waited.String(), "rate", a.gate.Limit(), "burst", a.gate.Burst())
	}

	trace.SpanFromContext(ctx).AddEvent("throttle.admitted",
		trace.WithAttributes(attribute.String("throttle.waited", waited.String())),
	)

	return nil
}

// Service is an [rpc.Handler] that waits on a shared [Gate] before
// delegating each call to the handler it wraps.
type Service struct {
	admitter
	inner rpc.Handler
}

var _ rpc.Handler = (*Service)(nil)

// NewService wraps inner. A nil jitter disables jitter. With a nil gate
// every Call fails with ErrNilGate. Most callers want [NewLayer] instead.
func NewService(inner rpc.Handler, gate *Gate, jitter *Jitter, opts ...Option) *Service {
	o := applyOptions(opts)

	return &Service{
		admitter: admitter{
			gate:    gate,
			jitter:  copyJitter(jitter),
			logFn:   o.logFn,
			metrics: o.metrics,
		},
		inner: inner,
	}
}

// Ready reports the inner handler's readiness. It never waits on the gate.
func (s *Service) Ready(ctx context.Context) error {
	return s.inner.Ready(ctx)
}

// Call waits for admission, then returns the inner handler's response and
// error as they are. A token is spent on every admitted call, whether or
// not the inner handler succeeds.
func (s *Service) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	if err := s.admit(ctx, req.Method); err != nil {
		return nil, err
	}

	return s.inner.Call(ctx, req)
}

// Clone returns a copy of s drawing from the same gate.
func (s *Service) Clone() *Service {
	cpy := *s
	return &cpy
}

// Gate returns the gate s waits on.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Layer builds Services around handlers, all sharing one [Gate].
type Layer struct {
	gate   *Gate
	jitter *Jitter
	opts   []Option
}

var _ rpc.Layer = (*Layer)(nil)

// NewLayer creates a Gate for rps and returns a Layer bound to it.
func NewLayer(rps uint32, jitter *Jitter, opts ...Option) (*Layer, error) {
	gate, err := NewGate(rps)
	if err != nil {
		return nil, err
	}

	return NewLayerFromGate(gate, jitter, opts...)
}

// NewLayerFromGate returns a Layer bound to an existing gate, letting
// several layers enforce a single quota.
func NewLayerFromGate(gate *Gate, jitter *Jitter, opts ...Option) (*Layer, error) {
	if gate == nil {
		return nil, ErrNilGate
	}

	l := Layer{
		gate:   gate,
		jitter: copyJitter(jitter),
		opts:   opts,
	}

	return &l, nil
}

// Layer implements rpc.Layer, wrapping inner in a new *Service.
func (l *Layer) Layer(inner rpc.Handler) rpc.Handler {
	return NewService(inner, l.gate, l.jitter, l.opts...)
}

// Gate returns the layer's gate.
func (l *Layer) Gate() *Gate {
	return l.gate
}

func copyJitter(j *Jitter) *Jitter {
	if j == nil {
		return nil
	}

	cpy := *j
	return &cpy
}
