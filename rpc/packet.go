package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Version is the JSON-RPC protocol version stamped on outgoing calls.
const Version = "2.0"

var (
	// ErrEmptyPacket is returned when decoding a batch with no entries.
	ErrEmptyPacket = errors.New("empty packet")
)

// ID is a raw JSON-RPC id. Numbers and strings are both valid.
type ID json.RawMessage

// NumberID returns an ID encoded as a JSON number.
func NumberID(n uint64) ID {
	return ID(strconv.AppendUint(nil, n, 10))
}

// StringID returns an ID encoded as a JSON string.
func StringID(s string) ID {
	return ID(strconv.Quote(s))
}

// String returns the id as it appears on the wire.
func (id ID) String() string {
	return string(id)
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return id, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = nil
		return nil
	}
	*id = append((*id)[:0], b...)
	return nil
}

// Call is a single JSON-RPC request object.
type Call struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewCall builds a Call, encoding params as JSON. A nil params is omitted.
func NewCall(id ID, method string, params any) (Call, error) {
	c := Call{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
	}

	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return Call{}, fmt.Errorf("encoding params for %s: %w", method, err)
		}
		c.Params = b
	}

	return c, nil
}

// Request is an outgoing packet: one call, or a batch of calls.
type Request struct {
	calls []Call
	batch bool
}

// NewRequest returns a Request carrying a single call.
func NewRequest(c Call) *Request {
	return &Request{calls: []Call{c}}
}

// NewBatch returns a Request carrying calls as a JSON array.
func NewBatch(calls ...Call) *Request {
	return &Request{calls: slices.Clone(calls), batch: true}
}

// Calls returns a copy of the calls in the packet.
// The accessors below treat a nil *Request as an empty packet.
func (r *Request) Calls() []Call {
	if r == nil {
		return nil
	}
	return slices.Clone(r.calls)
}

// Len returns the number of calls in the packet.
func (r *Request) Len() int {
	if r == nil {
		return 0
	}
	return len(r.calls)
}

// IsBatch reports whether the packet is encoded as an array.
func (r *Request) IsBatch() bool {
	return r != nil && r.batch
}

// Method describes the packet for logs: the method of a single call,
// "batch" for batches, or "" for a nil packet.
func (r *Request) Method() string {
	if r == nil {
		return ""
	}
	if r.batch || len(r.calls) != 1 {
		return "batch"
	}
	return r.calls[0].Method
}

// MarshalJSON implements json.Marshaler.
func (r *Request) MarshalJSON() ([]byte, error) {
	if r.batch {
		return json.Marshal(r.calls)
	}
	if len(r.calls) != 1 {
		return nil, ErrEmptyPacket
	}
	return json.Marshal(r.calls[0])
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(b []byte) error {
	calls, batch, err := decodePacket[Call](b)
	if err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}

	r.calls, r.batch = calls, batch
	return nil
}

// Result is a single JSON-RPC response object.
type Result struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Response is an incoming packet: one result, or a batch of results.
type Response struct {
	results []Result
	batch   bool
}

// NewResponse returns a Response carrying a single result.
func NewResponse(res Result) *Response {
	return &Response{results: []Result{res}}
}

// NewBatchResponse returns a Response carrying results as a JSON array.
func NewBatchResponse(results ...Result) *Response {
	return &Response{results: slices.Clone(results), batch: true}
}

// Results returns a copy of the results in the packet.
func (r *Response) Results() []Result {
	return slices.Clone(r.results)
}

// IsBatch reports whether the packet was encoded as an array.
func (r *Response) IsBatch() bool {
	return r.batch
}

// Lookup returns the result whose id matches id.
func (r *Response) Lookup(id ID) (Result, bool) {
	for _, res := range r.results {
		if bytes.Equal(res.ID, id) {
			return res, true
		}
	}
	return Result{}, false
}

// Errors returns the error objects carried by the packet, if any.
func (r *Response) Errors() []*Error {
	var errs []*Error
	for _, res := range r.results {
		if res.Error != nil {
			errs = append(errs, res.Error)
		}
	}
	return errs
}

// MarshalJSON implements json.Marshaler.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.batch {
		return json.Marshal(r.results)
	}
	if len(r.results) != 1 {
		return nil, ErrEmptyPacket
	}
	return json.Marshal(r.results[0])
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(b []byte) error {
	results, batch, err := decodePacket[Result](b)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	r.results, r.batch = results, batch
	return nil
}

// decodePacket decodes either a single object or an array of objects.
func decodePacket[T any](b []byte) ([]T, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, false, err
		}
		if len(items) == 0 {
			return nil, false, ErrEmptyPacket
		}
		return items, true, nil
	}

	var item T
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, false, err
	}
	return []T{item}, false, nil
}
