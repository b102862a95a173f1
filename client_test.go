package rpcthrottle_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/rpcthrottle"
	"github.com/adamwoolhether/rpcthrottle/rpc"
	"github.com/adamwoolhether/rpcthrottle/throttle"
)

type block struct {
	Number       string   `json:"number"`
	Transactions []string `json:"transactions"`
}

// fakeNode answers a handful of eth_ methods and rejects everything else.
func fakeNode(t *testing.T) *httptest.Server {
	t.Helper()

	answer := func(c rpc.Call) rpc.Result {
		res := rpc.Result{JSONRPC: rpc.Version, ID: c.ID}

		switch c.Method {
		case "eth_blockNumber":
			res.Result = json.RawMessage(`"0x1b4"`)
		case "eth_getBlockByNumber":
			var params []any
			if err := json.Unmarshal(c.Params, &params); err != nil || len(params) == 0 {
				res.Error = &rpc.Error{Code: -32602, Message: "invalid params"}
				return res
			}
			b, _ := json.Marshal(block{Number: params[0].(string), Transactions: []string{"0xaa", "0xbb"}})
			res.Result = b
		default:
			res.Error = &rpc.Error{Code: -32601, Message: "method not found"}
		}

		return res
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var results []rpc.Result
		for _, c := range req.Calls() {
			results = append(results, answer(c))
		}

		resp := rpc.NewResponse(results[0])
		if req.IsBatch() {
			resp = rpc.NewBatchResponse(results...)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestClient_Call(t *testing.T) {
	ts := fakeNode(t)

	c, err := rpcthrottle.NewBuilder().HTTP(ts.URL)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var head string
	if err := c.Call(context.Background(), "eth_blockNumber", nil, &head); err != nil {
		t.Fatalf("call: %v", err)
	}
	if head != "0x1b4" {
		t.Fatalf("expected 0x1b4, got %s", head)
	}

	var b block
	if err := c.Call(context.Background(), "eth_getBlockByNumber", []any{"0x1b3", false}, &b); err != nil {
		t.Fatalf("call: %v", err)
	}

	exp := block{Number: "0x1b3", Transactions: []string{"0xaa", "0xbb"}}
	if diff := cmp.Diff(exp, b); diff != "" {
		t.Fatalf("block mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_CallRPCError(t *testing.T) {
	ts := fakeNode(t)

	c, err := rpcthrottle.NewBuilder().HTTP(ts.URL)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	err = c.Call(context.Background(), "eth_mine", nil, nil)

	rpcErr, ok := errors.AsType[*rpc.Error](err)
	if !ok {
		t.Fatalf("expected *rpc.Error, got %T: %v", err, err)
	}
	if rpcErr.Code != -32601 {
		t.Fatalf("expected code -32601, got %d", rpcErr.Code)
	}
}

func TestClient_CallIDs(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)

	h := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		call := req.Calls()[0]

		mu.Lock()
		ids = append(ids, call.ID.String())
		mu.Unlock()

		return rpc.NewResponse(rpc.Result{JSONRPC: rpc.Version, ID: call.ID, Result: json.RawMessage(`true`)}), nil
	})

	c := rpcthrottle.NewBuilder().Handler(h)

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			var ok bool
			if err := c.Call(context.Background(), "net_listening", nil, &ok); err != nil {
				t.Errorf("call: %v", err)
			}
		})
	}
	wg.Wait()

	slices.Sort(ids)
	if got := len(slices.Compact(ids)); got != 20 {
		t.Fatalf("expected 20 unique ids, got %d", got)
	}
}

func TestClient_CallMissingResult(t *testing.T) {
	h := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		return rpc.NewResponse(rpc.Result{JSONRPC: rpc.Version, ID: rpc.StringID("other")}), nil
	})

	c := rpcthrottle.NewBuilder().Handler(h)

	if err := c.Call(context.Background(), "eth_chainId", nil, nil); !errors.Is(err, rpcthrottle.ErrMissingResult) {
		t.Fatalf("expected ErrMissingResult, got: %v", err)
	}
}

func TestClient_CallHandlerError(t *testing.T) {
	boom := errors.New("boom")
	h := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		return nil, boom
	})

	c := rpcthrottle.NewBuilder().Handler(h)

	if err := c.Call(context.Background(), "eth_chainId", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}
}

func TestClient_Batch(t *testing.T) {
	ts := fakeNode(t)

	c, err := rpcthrottle.NewBuilder().HTTP(ts.URL)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var (
		head string
		b    block
	)

	calls := []*rpcthrottle.BatchCall{
		{Method: "eth_blockNumber", Result: &head},
		{Method: "eth_getBlockByNumber", Params: []any{"0x10", false}, Result: &b},
		{Method: "eth_mine"},
	}

	if err := c.Batch(context.Background(), calls...); err != nil {
		t.Fatalf("batch: %v", err)
	}

	if calls[0].Err != nil || head != "0x1b4" {
		t.Fatalf("unexpected first element: head=%s err=%v", head, calls[0].Err)
	}
	if calls[1].Err != nil || b.Number != "0x10" {
		t.Fatalf("unexpected second element: block=%+v err=%v", b, calls[1].Err)
	}
	if _, ok := errors.AsType[*rpc.Error](calls[2].Err); !ok {
		t.Fatalf("expected *rpc.Error for third element, got: %v", calls[2].Err)
	}
}

func TestClient_BatchEmpty(t *testing.T) {
	c := rpcthrottle.NewBuilder().Handler(rpc.HandlerFunc(func(context.Context, *rpc.Request) (*rpc.Response, error) {
		t.Fatal("handler must not be called")
		return nil, nil
	}))

	if err := c.Batch(context.Background()); !errors.Is(err, rpc.ErrEmptyPacket) {
		t.Fatalf("expected ErrEmptyPacket, got: %v", err)
	}
}

func TestBuilder_LayerOrder(t *testing.T) {
	var order []string

	mark := func(name string) rpc.Layer {
		return rpc.LayerFunc(func(inner rpc.Handler) rpc.Handler {
			return rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
				order = append(order, name)
				return inner.Call(ctx, req)
			})
		})
	}

	h := rpc.HandlerFunc(func(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
		order = append(order, "transport")
		return rpc.NewResponse(rpc.Result{JSONRPC: rpc.Version, ID: req.Calls()[0].ID}), nil
	})

	c := rpcthrottle.NewBuilder().
		Layer(mark("first")).
		Layer(nil).
		Layer(mark("second")).
		Handler(h)

	if err := c.Call(context.Background(), "web3_clientVersion", nil, nil); err != nil {
		t.Fatalf("call: %v", err)
	}

	if diff := cmp.Diff([]string{"first", "second", "transport"}, order); diff != "" {
		t.Fatalf("layer order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_Throttled(t *testing.T) {
	ts := fakeNode(t)

	layer, err := throttle.NewLayer(10, nil)
	if err != nil {
		t.Fatalf("layer: %v", err)
	}

	c, err := rpcthrottle.NewBuilder().Layer(layer).HTTP(ts.URL)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// The burst of 10 is free, the next 5 need half a second.
	start := time.Now()
	for range 15 {
		if err := c.Call(context.Background(), "eth_blockNumber", nil, nil); err != nil {
			t.Fatalf("call: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 450*time.Millisecond {
		t.Fatalf("expected throttled calls to take at least 450ms, took %v", elapsed)
	}
}

func TestBuilder_HTTPInvalidEndpoint(t *testing.T) {
	if _, err := rpcthrottle.NewBuilder().HTTP("not a url"); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}
