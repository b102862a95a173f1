package rpc

import (
	"context"
	"errors"
	"slices"
)

// ErrNotReady may be returned by [Handler.Ready] when a handler cannot
// currently accept calls.
var ErrNotReady = errors.New("handler not ready")

// Handler is the capability every pipeline stage implements.
type Handler interface {
	// Call sends req and returns its response.
	Call(ctx context.Context, req *Request) (*Response, error)
	// Ready returns nil when the handler can accept a call.
	Ready(ctx context.Context) error
}

// HandlerFunc adapts a plain func into a [Handler] that is always ready.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Call calls f(ctx, req).
func (f HandlerFunc) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Ready always returns nil.
func (f HandlerFunc) Ready(context.Context) error {
	return nil
}

// Layer decorates a Handler, returning a Handler with the same contract.
type Layer interface {
	Layer(inner Handler) Handler
}

// LayerFunc adapts a plain func into a [Layer].
type LayerFunc func(inner Handler) Handler

// Layer calls f(inner).
func (f LayerFunc) Layer(inner Handler) Handler {
	return f(inner)
}

// Stack wraps the layers around h and executes them in the order given:
// layers[0] receives calls first and h receives them last.
func Stack(h Handler, layers ...Layer) Handler {
	for _, l := range slices.Backward(layers) {
		if l != nil {
			h = l.Layer(h)
		}
	}

	return h
}
