package rpc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/adamwoolhether/rpcthrottle/rpc"
	"github.com/google/go-cmp/cmp"
)

func TestStack_Order(t *testing.T) {
	var order []string

	mark := func(name string) rpc.Layer {
		return rpc.LayerFunc(func(inner rpc.Handler) rpc.Handler {
			return rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
				order = append(order, name)
				return inner.Call(ctx, req)
			})
		})
	}

	base := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		order = append(order, "base")
		return rpc.NewResponse(rpc.Result{JSONRPC: rpc.Version, ID: rpc.NumberID(1)}), nil
	})

	h := rpc.Stack(base, mark("first"), nil, mark("second"))

	call, err := rpc.NewCall(rpc.NumberID(1), "eth_blockNumber", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.Call(t.Context(), rpc.NewRequest(call)); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	if diff := cmp.Diff([]string{"first", "second", "base"}, order); diff != "" {
		t.Errorf("unexpected call order (-want +got):\n%s", diff)
	}
}

func TestStack_NoLayers(t *testing.T) {
	errBase := errors.New("base")
	base := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		return nil, errBase
	})

	h := rpc.Stack(base)

	if _, err := h.Call(t.Context(), rpc.NewBatch()); !errors.Is(err, errBase) {
		t.Errorf("exp %v, got %v", errBase, err)
	}
}

func TestHandlerFunc_Ready(t *testing.T) {
	h := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		return nil, nil
	})

	if err := h.Ready(t.Context()); err != nil {
		t.Errorf("exp HandlerFunc to always be ready, got: %v", err)
	}
}
