// Package rpcthrottle exposes a builder for JSON-RPC clients whose
// outgoing calls pass through a stack of layers, typically a throttle
// and a retry policy, before reaching the transport.
package rpcthrottle

import (
	"fmt"

	"github.com/adamwoolhether/rpcthrottle/rpc"
	"github.com/adamwoolhether/rpcthrottle/transport"
)

// Builder collects layers and applies them to a transport.
// The first layer added is the outermost.
type Builder struct {
	layers []rpc.Layer
}

// NewBuilder instantiates an empty *Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Layer appends l to the stack. Nil layers are ignored.
func (b *Builder) Layer(l rpc.Layer) *Builder {
	if l != nil {
		b.layers = append(b.layers, l)
	}

	return b
}

// Handler wraps h with the collected layers and returns a *Client over it.
func (b *Builder) Handler(h rpc.Handler) *Client {
	return newClient(rpc.Stack(h, b.layers...))
}

// HTTP builds an HTTP transport for endpoint and wraps it with the
// collected layers.
func (b *Builder) HTTP(endpoint string, opts ...transport.Option) (*Client, error) {
	t, err := transport.Build(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("building transport: %w", err)
	}

	return b.Handler(t), nil
}
