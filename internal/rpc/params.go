package rpc

import (
	"encoding/json"

	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
)

// Params is a named-extraction view over a request's "params" object,
// mirroring the teacher's style of small value wrappers rather than
// reflection-based struct binding. Missing required fields yield
// INVALID_PARAMS naming the parameter, per spec.md §4.A.
type Params struct {
	raw map[string]any
}

func ParseParams(data json.RawMessage) (Params, error) {
	if len(data) == 0 {
		return Params{raw: map[string]any{}}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Params{}, rpcerr.InvalidRequest("params must be an object: %v", err)
	}
	return Params{raw: m}, nil
}

func (p Params) has(name string) (any, bool) {
	v, ok := p.raw[name]
	return v, ok
}

func (p Params) String(name, def string) string {
	if v, ok := p.has(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (p Params) RequireString(name string) (string, error) {
	v, ok := p.has(name)
	if !ok {
		return "", rpcerr.MissingParam(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", rpcerr.InvalidParams("parameter %q must be a string", name)
	}
	return s, nil
}

func (p Params) Float64(name string, def float64) float64 {
	if v, ok := p.has(name); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

func (p Params) RequireFloat64(name string) (float64, error) {
	v, ok := p.has(name)
	if !ok {
		return 0, rpcerr.MissingParam(name)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, rpcerr.InvalidParams("parameter %q must be a number", name)
	}
	return f, nil
}

func (p Params) RequireInt(name string) (int, error) {
	f, err := p.RequireFloat64(name)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (p Params) Int(name string, def int) int {
	if v, ok := p.has(name); ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return def
}

func (p Params) Bool(name string, def bool) bool {
	if v, ok := p.has(name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// OptionalString returns the value and whether the key was present and a
// string; used where "omitted" and "empty string" are distinguished by
// callers (e.g. resume's optional thread_name).
func (p Params) OptionalString(name string) (string, bool) {
	v, ok := p.has(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
