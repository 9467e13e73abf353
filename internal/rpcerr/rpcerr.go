// Package rpcerr defines the JSON-RPC 2.0 error taxonomy used at the
// protocol boundary. Everything below the RPC layer returns plain Go
// errors; only internal/rpc unwraps an *Error to build the wire response.
package rpcerr

import "fmt"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// String discriminators embedded in Error.Message for clients that parse
// beyond the numeric code.
const (
	TagNotSuspended     = "ERR_NOT_SUSPENDED"
	TagObjectCollected  = "ERR_OBJECT_COLLECTED"
	TagEvalUnsupported  = "ERR_EVAL_UNSUPPORTED"
	TagConditionSyntax  = "ERR_CONDITION_SYNTAX"
	TagConditionType    = "ERR_CONDITION_TYPE"
	TagAppNotDebuggable = "APP_NOT_DEBUGGABLE"
)

// Error is a JSON-RPC 2.0 error object with an optional string tag folded
// into Message (e.g. "ERR_NOT_SUSPENDED: thread main is not suspended").
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string { return e.Message }

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Tagged builds an error whose message carries one of the Tag* string
// discriminators, e.g. Tagged(CodeInvalidRequest, TagNotSuspended, "thread %q is not suspended", name).
func Tagged(code int, tag, format string, args ...any) *Error {
	return &Error{Code: code, Message: tag + ": " + fmt.Sprintf(format, args...)}
}

func InvalidParams(format string, args ...any) *Error {
	return Newf(CodeInvalidParams, format, args...)
}

// MissingParam reports a required parameter that was absent from the
// request, naming the parameter as spec.md §4.A requires.
func MissingParam(name string) *Error {
	return Newf(CodeInvalidParams, "missing required parameter %q", name)
}

func InvalidRequest(format string, args ...any) *Error {
	return Newf(CodeInvalidRequest, format, args...)
}

func MethodNotFound(method string) *Error {
	return Newf(CodeMethodNotFound, "method not found: %s", method)
}

func Internal(err error) *Error {
	return Newf(CodeInternalError, "internal error: %v", err)
}

func ParseError(format string, args ...any) *Error {
	return Newf(CodeParseError, format, args...)
}

// As extracts an *Error from err, wrapping non-tagged errors as internal
// errors the way internal/rpc's outer handler is required to.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal(err)
}
