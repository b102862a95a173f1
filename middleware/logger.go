package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/adamwoolhether/rpcthrottle/rpc"
)

// Logger logs the start and completion of every call.
func Logger(log *slog.Logger) rpc.Layer {
	m := func(handler rpc.Handler) rpc.Handler {
		return logged{next: handler, log: log}
	}

	return rpc.LayerFunc(m)
}

type logged struct {
	next rpc.Handler
	log  *slog.Logger
}

func (l logged) Ready(ctx context.Context) error {
	return l.next.Ready(ctx)
}

func (l logged) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	traceID := GetTraceID(ctx)
	start := time.Now()

	l.log.Info("request started", "method", req.Method(), "calls", req.Len(), "trace_id", traceID)

	resp, err := l.next.Call(ctx, req)
	if err != nil {
		l.log.Error("request failed", "method", req.Method(), "trace_id", traceID, "since", time.Since(start).String(), "error", err)
		return resp, err
	}

	var rpcErrs int
	if resp != nil {
		rpcErrs = len(resp.Errors())
	}

	l.log.Info("request completed", "method", req.Method(), "trace_id", traceID, "rpc_errors", rpcErrs, "since", time.Since(start).String())

	return resp, err
}
