package rpcthrottle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/adamwoolhether/rpcthrottle/rpc"
)

var (
	// ErrMissingResult is returned when the response carries no result
	// for a call's id.
	ErrMissingResult = errors.New("response has no result for call")
	// ErrNilResponse is returned when the pipeline returns neither a
	// response nor an error.
	ErrNilResponse = errors.New("nil response")
)

// Client assigns ids, encodes params and decodes results for calls sent
// through its pipeline. It is safe for concurrent use.
type Client struct {
	h      rpc.Handler
	nextID atomic.Uint64
}

func newClient(h rpc.Handler) *Client {
	return &Client{h: h}
}

// Handler returns the composed pipeline.
func (c *Client) Handler() rpc.Handler {
	return c.h
}

// Ready reports whether the pipeline can accept a call.
func (c *Client) Ready(ctx context.Context) error {
	return c.h.Ready(ctx)
}

// Call invokes method with params and decodes the result into result,
// which must be a pointer or nil. A JSON-RPC error object is returned
// as a *rpc.Error.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	id := rpc.NumberID(c.nextID.Add(1))

	call, err := rpc.NewCall(id, method, params)
	if err != nil {
		return err
	}

	resp, err := c.h.Call(ctx, rpc.NewRequest(call))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp == nil {
		return fmt.Errorf("%s: %w", method, ErrNilResponse)
	}

	res, ok := resp.Lookup(id)
	if !ok {
		return fmt.Errorf("%s id[%s]: %w", method, id, ErrMissingResult)
	}

	return decodeResult(res, result)
}

// BatchCall is one element of a batch. Result receives the decoded
// result and Err any per-call error after [Client.Batch] returns.
type BatchCall struct {
	Method string
	Params any
	Result any
	Err    error
}

// Batch sends calls as a single JSON-RPC batch. The returned error
// reports failures of the batch as a whole; per-call failures are
// stored in each BatchCall's Err.
func (c *Client) Batch(ctx context.Context, calls ...*BatchCall) error {
	if len(calls) == 0 {
		return rpc.ErrEmptyPacket
	}

	ids := make([]rpc.ID, len(calls))
	packet := make([]rpc.Call, len(calls))
	for i, bc := range calls {
		ids[i] = rpc.NumberID(c.nextID.Add(1))

		call, err := rpc.NewCall(ids[i], bc.Method, bc.Params)
		if err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		packet[i] = call
	}

	resp, err := c.h.Call(ctx, rpc.NewBatch(packet...))
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("batch: %w", ErrNilResponse)
	}

	for i, bc := range calls {
		res, ok := resp.Lookup(ids[i])
		if !ok {
			bc.Err = fmt.Errorf("%s id[%s]: %w", bc.Method, ids[i], ErrMissingResult)
			continue
		}
		bc.Err = decodeResult(res, bc.Result)
	}

	return nil
}

func decodeResult(res rpc.Result, dest any) error {
	if res.Error != nil {
		return res.Error
	}

	if dest == nil || len(res.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(res.Result, dest); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	return nil
}
