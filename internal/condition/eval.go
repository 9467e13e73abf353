package condition

// Outcome is the three-way result spec.md §4.B hands to the breakpoint
// dispatcher.
type Outcome int

const (
	OutcomeTrue Outcome = iota
	OutcomeFalse
	OutcomeError
)

// ConditionResult is the tagged-union result of evaluating a compiled
// condition against a frame.
type ConditionResult struct {
	Outcome Outcome
	Message string // populated only when Outcome == OutcomeError
}

// Compiled wraps a parsed expression plus the raw source text, stored on a
// Breakpoint per spec.md §3.
type Compiled struct {
	Source string
	expr   Expr
}

// Compile parses src, returning a *SyntaxError wrapped as a plain error on
// malformed input.
func Compile(src string) (*Compiled, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Compiled{Source: src, expr: expr}, nil
}

// Eval runs the compiled expression against resolver, translating runtime
// errors (type mismatches, unresolved paths) into an OutcomeError rather
// than propagating them, per spec.md §4.B's three-way ConditionResult.
func (c *Compiled) Eval(resolver Resolver) ConditionResult {
	v, err := c.expr.eval(resolver)
	if err != nil {
		return ConditionResult{Outcome: OutcomeError, Message: err.Error()}
	}
	if v.Truthy() {
		return ConditionResult{Outcome: OutcomeTrue}
	}
	return ConditionResult{Outcome: OutcomeFalse}
}
