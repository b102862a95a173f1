package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrInvalidQuota is returned when constructing a Gate with zero rps.
	ErrInvalidQuota = errors.New("requests per second must be a non-zero positive integer")
	// ErrAdmissionCanceled is returned when a caller's context ends before
	// it is admitted. The context's error is always wrapped alongside it.
	ErrAdmissionCanceled = errors.New("throttle admission canceled")
	// ErrNilGate is returned when a nil Gate is handed to a constructor or Service.
	ErrNilGate = errors.New("gate must not be nil")
)

// Gate is a shared token bucket admitting at most rps calls per second,
// with a burst equal to rps. It is safe for concurrent use.
type Gate struct {
	limiter *rate.Limiter
	rps     uint32
}

// NewGate returns a Gate allowing rps requests per second.
func NewGate(rps uint32) (*Gate, error) {
	if rps == 0 {
		return nil, fmt.Errorf("rps[%d]: %w", rps, ErrInvalidQuota)
	}

	g := Gate{
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		rps:     rps,
	}

	return &g, nil
}

// Limit returns the configured requests per second.
func (g *Gate) Limit() uint32 {
	return g.rps
}

// Burst returns the bucket capacity.
func (g *Gate) Burst() int {
	return g.limiter.Burst()
}

// Tokens returns the number of tokens currently in the bucket. It is
// negative while callers hold reservations for future tokens.
func (g *Gate) Tokens() float64 {
	return g.limiter.Tokens()
}

// Wait blocks until a token is available and consumes it. If ctx ends
// first the token is returned to the bucket and the error wraps both
// ErrAdmissionCanceled and the context error.
func (g *Gate) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrAdmissionCanceled, err)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return admissionErr(ctx, err)
	}

	return nil
}

// WaitWithJitter calls Wait, then sleeps for a duration sampled from j.
// The token stays consumed if ctx ends during the jitter sleep.
func (g *Gate) WaitWithJitter(ctx context.Context, j Jitter) error {
	if err := g.Wait(ctx); err != nil {
		return err
	}

	d := j.Sample()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w during jitter: %w", ErrAdmissionCanceled, ctx.Err())
	}
}

// admissionErr normalizes limiter errors. The limiter refuses up front,
// without reserving, when the wait would outlive the ctx deadline; that
// case is reported as a deadline.
func admissionErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrAdmissionCanceled, ctxErr)
	}

	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %w: %w", ErrAdmissionCanceled, context.DeadlineExceeded, err)
	}

	return fmt.Errorf("%w: %w", ErrAdmissionCanceled, err)
}
