package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/adamwoolhether/rpcthrottle/rpc"
	"github.com/adamwoolhether/rpcthrottle/throttle"
)

// HTTP posts JSON-RPC packets to a single endpoint.
type HTTP struct {
	c        *http.Client
	endpoint *url.URL
	headers  http.Header
	logger   *slog.Logger
}

var _ rpc.Handler = (*HTTP)(nil)

// Build returns an HTTP transport for endpoint, which must be an absolute
// http or https URL.
func Build(endpoint string, optFns ...Option) (*HTTP, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute http(s) url", endpoint)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying transport option: %w", err)
		}
	}

	h := &HTTP{
		c:        &http.Client{},
		endpoint: u,
		headers:  opts.headers,
		logger:   slog.Default(),
	}

	if opts.client != nil {
		cpy := *opts.client
		h.c = &cpy
	}

	if opts.logger != nil {
		h.logger = opts.logger
	}

	if opts.timeout != nil {
		h.c.Timeout = *opts.timeout
	}

	var base http.RoundTripper
	switch {
	case opts.rt != nil:
		base = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		base = opts.client.Transport
	default:
		base = http.DefaultTransport
	}
	if opts.userAgent != "" {
		base = userAgent{value: opts.userAgent, base: base}
	}
	if opts.gate != nil {
		rt, err := throttle.NewRoundTripper(opts.gate, opts.jitter, func() *slog.Logger { return h.logger }, base)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		base = rt
	}
	h.c.Transport = base

	return h, nil
}

// Endpoint returns the node url.
func (h *HTTP) Endpoint() string {
	return h.endpoint.String()
}

// Ready always returns nil; every call opens or reuses a connection on demand.
func (h *HTTP) Ready(context.Context) error {
	return nil
}

// Call posts req and decodes the node's response packet.
func (h *HTTP) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range h.headers {
		for _, element := range v {
			httpReq.Header.Add(k, element)
		}
	}

	var resp rpc.Response
	decode := func(r *http.Response) error {
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			return fmt.Errorf("decoding body: %w", err)
		}
		return nil
	}

	if err := h.exec(httpReq, decode); err != nil {
		return nil, err
	}

	return &resp, nil
}

// exec runs the request and injected function on success after validating the status code.
func (h *HTTP) exec(req *http.Request, fn execFn) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err = io.Copy(io.Discard, resp.Body); err != nil {
				h.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err = resp.Body.Close(); err != nil {
			h.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}

		return newStatusError(resp, b)
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}
