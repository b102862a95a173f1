// Package rpc defines the request/response packets and the handler
// contract shared by every stage of a JSON-RPC request pipeline.
//
// # Handlers
//
// A [Handler] accepts a [Request] and returns a [Response] or an error.
// It also reports whether it is ready to accept calls. Transports sit at
// the bottom of a pipeline, and cross-cutting concerns (throttling,
// retries, logging) wrap them.
//
// # Layers
//
// A [Layer] wraps one [Handler] and returns another, preserving the
// contract. [Stack] composes layers around a handler, the first layer
// becoming the outermost:
//
//	h := rpc.Stack(transport,
//		throttleLayer, // runs first
//		retryLayer,    // runs second, closest to the transport
//	)
//
// Packets are opaque to layers: a layer should forward the request it was
// given and return the response it received.
package rpc
