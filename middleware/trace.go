package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/rpcthrottle/rpc"
)

// Trace starts a span per call and stores the call's BaseValues in the
// context. A nil tracer uses a no-op tracer, in which case trace ids are
// random uuids.
func Trace(tracer trace.Tracer) rpc.Layer {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	m := func(handler rpc.Handler) rpc.Handler {
		return traced{next: handler, tracer: tracer}
	}

	return rpc.LayerFunc(m)
}

type traced struct {
	next   rpc.Handler
	tracer trace.Tracer
}

func (t traced) Ready(ctx context.Context) error {
	return t.next.Ready(ctx)
}

func (t traced) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	ctx, span := t.tracer.Start(ctx, "rpc.call", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", req.Method()),
		attribute.Int("rpc.batch_size", req.Len()),
	)

	traceID := span.SpanContext().TraceID().String()
	if !span.SpanContext().TraceID().IsValid() {
		traceID = uuid.New().String()
	}

	v := BaseValues{
		TraceID: traceID,
		Now:     time.Now().UTC(),
		Tracer:  t.tracer,
	}

	resp, err := t.next.Call(setValues(ctx, &v), req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return resp, err
}
