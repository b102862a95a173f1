package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/adamwoolhether/rpcthrottle/rpc"
)

// Panics recovers from panics if they occur.
func Panics() rpc.Layer {
	m := func(handler rpc.Handler) rpc.Handler {
		h := func(ctx context.Context, req *rpc.Request) (resp *rpc.Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					resp, err = nil, fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler.Call(ctx, req)
		}

		return recovered{HandlerFunc: h, ready: handler.Ready}
	}

	return rpc.LayerFunc(m)
}

// recovered keeps the wrapped handler's readiness, which a bare
// rpc.HandlerFunc would drop.
type recovered struct {
	rpc.HandlerFunc
	ready func(context.Context) error
}

func (r recovered) Ready(ctx context.Context) error {
	return r.ready(ctx)
}
