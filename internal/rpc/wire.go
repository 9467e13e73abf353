package rpc

import "encoding/json"

// request is the wire shape of an incoming JSON-RPC 2.0 line. ID is a
// *int64 so we can tell "absent" (notification) from "present" (request),
// per spec.md §4.A ("id is absent ... or integer").
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      *int64     `json:"id"`
	Result  any        `json:"result,omitempty"`
	Error   *errorWire `json:"error,omitempty"`
}

type errorWire struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// notification is an async "event" push: method is always "event" and
// there is never an id.
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// eventParams wraps a notification payload with the event discriminator
// "type", e.g. {"type":"breakpoint_hit", ...}.
type eventParams struct {
	Type string `json:"type"`
	Data any    `json:"-"`
}

func (e eventParams) MarshalJSON() ([]byte, error) {
	// Flatten Data's fields alongside "type" rather than nesting it, so
	// notifications read as {"type":"breakpoint_hit","breakpoint_id":1,...}.
	merged := map[string]any{"type": e.Type}
	if e.Data != nil {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
