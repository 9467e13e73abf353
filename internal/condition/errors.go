package condition

import "fmt"

// Tag strings mirror the ERR_CONDITION_* discriminators from spec.md §7;
// duplicated here (rather than imported from internal/rpcerr) so this
// package stays free of the protocol-layer dependency.
const (
	TagConditionSyntax = "ERR_CONDITION_SYNTAX"
	TagConditionType   = "ERR_CONDITION_TYPE"
)

// SyntaxError is raised by Parse on malformed input; ERR_CONDITION_SYNTAX
// is embedded by callers (set_breakpoint's INVALID_PARAMS response).
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

func syntaxErrorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...)}
}

// EvalError is raised by Eval for runtime failures distinct from syntax
// errors: missing path, type-mismatched comparison, object equality.
// ERR_CONDITION_TYPE is the only tag spec.md names for these; path
// resolution failures surface whatever message the Resolver returns.
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string { return e.Message }

func evalErrorf(format string, args ...any) *EvalError {
	return &EvalError{Message: fmt.Sprintf(format, args...)}
}
