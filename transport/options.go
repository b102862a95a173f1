package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/rpcthrottle/throttle"
)

// Option is a functional option for configuring an [HTTP] transport via [Build].
type Option func(*options) error
type options struct {
	client    *http.Client
	rt        http.RoundTripper
	timeout   *time.Duration
	userAgent string
	headers   http.Header
	gate      *throttle.Gate
	jitter    *throttle.Jitter
	logger    *slog.Logger
}

// WithClient replaces the default [http.Client]. The client is copied,
// never modified.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithHeaders adds custom headers to every outgoing request, e.g. API keys.
func WithHeaders(headers map[string][]string) Option {
	return func(c *options) error {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		for k, vs := range headers {
			for _, v := range vs {
				c.headers.Add(k, v)
			}
		}
		return nil
	}
}

// WithThrottle waits on gate before every HTTP round trip.
func WithThrottle(gate *throttle.Gate, jitter *throttle.Jitter) Option {
	return func(c *options) error {
		if gate == nil {
			return throttle.ErrNilGate
		}
		c.gate = gate
		c.jitter = jitter
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
