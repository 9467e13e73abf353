// Package condition implements the restricted boolean expression language
// used by conditional breakpoints (spec.md §4.B): a recursive-descent
// parser producing an AST, evaluated against a caller-supplied path
// resolver. No third-party expression-evaluator dependency in the pack
// (or wider ecosystem) targets this exact restricted grammar plus
// frame-path resolution, so the lexer/parser/evaluator is hand-rolled;
// see DESIGN.md for the full justification.
package condition

import "fmt"

// Kind tags the Value union, following the teacher's preference (see
// internal/gc/types.go) for an explicit Kind field over one interface
// type per variant.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindChar
	KindText
	KindObject
)

// Value is a runtime value produced by literals or path resolution.
type Value struct {
	Kind     Kind
	Bool     bool
	Number   float64
	Text     string
	TypeName string // populated only for Kind == KindObject
}

func Null() Value            { return Value{Kind: KindNull} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }
func Text(s string) Value    { return Value{Kind: KindText, Text: s} }

// Char is kept distinct from KindText: spec.md section 4.B's truthiness
// table treats the NUL char as false but an empty string as true, which a
// shared representation could not express.
func Char(c rune) Value { return Value{Kind: KindChar, Text: string(c)} }

func Object(typeName string) Value {
	return Value{Kind: KindObject, TypeName: typeName}
}

const nulChar = rune(0)

// Truthy implements spec.md §4.B's truthiness table: null/false/0/0.0/NUL
// char are false; empty string is true; non-empty objects/strings are
// true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number != 0
	case KindChar:
		return v.Text != string(nulChar)
	case KindText, KindObject:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindNumber:
		return fmt.Sprintf("%g", v.Number)
	case KindChar, KindText:
		return v.Text
	case KindObject:
		return v.TypeName
	default:
		return "?"
	}
}

// Resolver looks up an identifier path ("a.b.c" as ["a","b","c"]) against
// the current stack frame; this is the hook spec.md §4.B delegates to
// §4.F's frame path lookup.
type Resolver func(path []string) (Value, error)
