package jdi

// ValueKind tags the Value union returned by JDI reads: primitives, a
// UTF-16 string, an array reference, or an arbitrary object reference.
type ValueKind int

const (
	KindVoid ValueKind = iota
	KindNull
	KindBool
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindString
	KindArray
	KindObject
)

// Value is a tagged struct rather than an interface-per-variant, matching
// the precedent set by internal/condition.Value and the teacher's
// enum-and-struct style (internal/gc/types.go).
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64 // byte/char/short/int/long/float/double, widened
	Str    string  // KindString content, not yet truncated
	Array  *ArrayValue
	Object *ObjectValue
}

func IsPrimitive(k ValueKind) bool {
	switch k {
	case KindBool, KindByte, KindChar, KindShort, KindInt, KindLong, KindFloat, KindDouble:
		return true
	default:
		return false
	}
}

// Field is one instance or static field read off an ObjectValue.
type Field struct {
	Name   string
	Static bool
	Value  Value
}

// ArrayValue models a true JDI ArrayReference.
type ArrayValue struct {
	UniqueID  int64
	ClassName string // e.g. "int[]"
	Length    int

	// ElementAt reads a single element; errors propagate ErrObjectCollected
	// if the backing array was since collected.
	ElementAt func(index int) (Value, error)
}

// ObjectValue models an arbitrary JDI ObjectReference.
type ObjectValue struct {
	UniqueID  int64
	ClassName string

	// Collected reports whether the underlying reference is known stale;
	// Fields/FieldByName still return ErrObjectCollected defensively.
	Collected bool

	// Fields enumerates non-static instance fields in declaration order.
	Fields func() ([]Field, error)

	// FieldByName reads a single field (static or instance) by raw name;
	// ok is false when no such field exists.
	FieldByName func(name string) (Value, bool, error)

	// InvokeToString calls the zero-arg toString() on thread, used only by
	// evaluate() (spec.md §4.F); ok is false when no such method exists
	// and the caller should fall back to a default textual form.
	InvokeToString func(thread ThreadReference) (str string, ok bool, err error)
}
