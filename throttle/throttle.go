package throttle

import (
	"log/slog"
	"net/http"
)

// roundTripper is an http.RoundTripper, using the shared Gate to
// restrict outbound calls at the transport level.
type roundTripper struct {
	admitter
	next http.RoundTripper
}

// NewRoundTripper returns an http.RoundTripper that waits on gate before
// each request. logFn lazily resolves the logger at request time; a nil
// fn, or one returning nil, disables logging. A nil next uses
// http.DefaultTransport.
func NewRoundTripper(gate *Gate, jitter *Jitter, logFn func() *slog.Logger, next http.RoundTripper, opts ...Option) (http.RoundTripper, error) {
	if gate == nil {
		return nil, ErrNilGate
	}
	if next == nil {
		next = http.DefaultTransport
	}

	o := applyOptions(opts)
	if logFn == nil {
		logFn = o.logFn
	}

	t := roundTripper{
		admitter: admitter{
			gate:    gate,
			jitter:  copyJitter(jitter),
			logFn:   logFn,
			metrics: o.metrics,
		},
		next: next,
	}

	return &t, nil
}

func (t *roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.admit(r.Context(), func() string { return r.URL.Path }); err != nil {
		if r.Body != nil {
			_ = r.Body.Close()
		}
		return nil, err
	}

	return t.next.RoundTrip(r)
}
