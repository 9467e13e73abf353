// Package inspect renders JDI values into bounded JSON per spec.md §4.F:
// depth 1..3, max string length 200, max collection items 10, max object
// fields 10, object-identity handles, and mapping-aware field names.
package inspect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mabhi256/jdiag-bridge/internal/budget"
	"github.com/mabhi256/jdiag-bridge/internal/condition"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
)

// ErrEvalUnsupported marks an evaluate() expression this engine does not
// implement (anything beyond a bare path or a ".toString()" path suffix,
// spec.md §4.F) — ERR_EVAL_UNSUPPORTED is embedded by the caller.
var ErrEvalUnsupported = errors.New("inspect: expression not supported by evaluate")

// Options bundles the cross-cutting concerns every recursive Render call
// needs; Handle and Lookup are the session's object-identity cache
// (package internal/objectcache), injected rather than imported to keep
// this package free of a session-layer dependency.
type Options struct {
	Budget  *budget.Budget
	Mapping *mapping.Mapping
	Handle  func(jdi.Value) (string, bool)
	Lookup  func(handle string) (jdi.Value, bool)
}

func (o Options) deobfuscateClass(raw string) string {
	if o.Mapping == nil {
		return raw
	}
	if orig, ok := o.Mapping.DeobfuscateClass(raw); ok {
		return orig
	}
	return raw
}

func (o Options) deobfuscateField(rawClass, rawField string) string {
	if o.Mapping == nil {
		return rawField
	}
	if orig, ok := o.Mapping.DeobfuscateField(rawClass, rawField); ok {
		return orig
	}
	return rawField
}

// Render renders v at the given depth (1..3 at the top call; decremented
// on recursion into object fields and array items). depth has no meaning
// for scalar values.
func Render(v jdi.Value, depth int, opts Options) (any, error) {
	switch v.Kind {
	case jdi.KindVoid, jdi.KindNull:
		return nil, nil
	case jdi.KindBool:
		opts.Budget.TryConsume(len(strconv.FormatBool(v.Bool)))
		return v.Bool, nil
	case jdi.KindChar:
		s := string(rune(int32(v.Number)))
		if !opts.Budget.TryConsume(len(s)) {
			return nil, nil
		}
		return s, nil
	case jdi.KindByte, jdi.KindShort, jdi.KindInt, jdi.KindLong:
		n := int64(v.Number)
		opts.Budget.TryConsume(len(strconv.FormatInt(n, 10)))
		return n, nil
	case jdi.KindFloat, jdi.KindDouble:
		opts.Budget.TryConsume(len(strconv.FormatFloat(v.Number, 'g', -1, 64)))
		return v.Number, nil
	case jdi.KindString:
		return renderString(v.Str, opts), nil
	case jdi.KindArray:
		return renderArray(v.Array, depth, opts)
	case jdi.KindObject:
		return renderObject(v.Object, depth, opts)
	default:
		return nil, nil
	}
}

func renderString(s string, opts Options) any {
	runes := []rune(s)
	capped := false
	if len(runes) > budget.MaxStringLength {
		runes = runes[:budget.MaxStringLength]
		capped = true
	}
	text := string(runes)
	if !opts.Budget.TryConsume(len(text)) {
		return nil
	}
	if capped {
		opts.Budget.MarkTruncated()
	}
	return text
}

func renderArray(a *jdi.ArrayValue, depth int, opts Options) (any, error) {
	className := opts.deobfuscateClass(a.ClassName)
	opts.Budget.TryConsume(len(className))

	shown := a.Length
	capped := false
	if shown > budget.MaxCollectionItems {
		shown = budget.MaxCollectionItems
		capped = true
	}

	items := make([]any, 0, shown)
	for i := 0; i < shown; i++ {
		el, err := a.ElementAt(i)
		if err != nil {
			return nil, err
		}
		if !opts.Budget.TryConsume(1) { // structural separator overhead
			capped = true
			break
		}
		rendered, err := Render(el, depth-1, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, rendered)
	}
	if capped {
		opts.Budget.MarkTruncated()
	}
	return map[string]any{
		"class":  className,
		"length": a.Length,
		"items":  items,
	}, nil
}

// detectListLike implements spec.md §4.F's list-like detection: an object
// with a "size" int field plus some other field holding a true array.
func detectListLike(o *jdi.ObjectValue) (backing *jdi.ArrayValue, size int, ok bool) {
	fields, err := o.Fields()
	if err != nil {
		return nil, 0, false
	}
	haveSize := false
	for _, f := range fields {
		if f.Static {
			continue
		}
		if f.Name == "size" && f.Value.Kind == jdi.KindInt {
			size = int(f.Value.Number)
			haveSize = true
		}
		if f.Value.Kind == jdi.KindArray {
			backing = f.Value.Array
		}
	}
	return backing, size, haveSize && backing != nil
}

func renderObject(o *jdi.ObjectValue, depth int, opts Options) (any, error) {
	if o.Collected {
		return nil, jdi.ErrObjectCollected
	}

	if backing, size, ok := detectListLike(o); ok {
		return renderListLike(o.ClassName, backing, size, depth, opts)
	}

	className := opts.deobfuscateClass(o.ClassName)
	opts.Budget.TryConsume(len(className))

	handle := ""
	if opts.Handle != nil {
		handle, _ = opts.Handle(jdi.Value{Kind: jdi.KindObject, Object: o})
	}
	opts.Budget.TryConsume(len(handle))

	result := map[string]any{"class": className, "object_id": handle}
	if depth <= 0 {
		return result, nil
	}

	fields, err := o.Fields()
	if err != nil {
		return nil, err
	}

	shown := 0
	capped := false
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Static {
			continue
		}
		if shown >= budget.MaxObjectFields {
			capped = true
			break
		}
		name := opts.deobfuscateField(o.ClassName, f.Name)
		if !opts.Budget.TryConsume(len(name) + 2) { // name + separators
			capped = true
			break
		}
		rendered, err := Render(f.Value, depth-1, opts)
		if err != nil {
			return nil, err
		}
		out[name] = rendered
		shown++
	}
	if capped {
		opts.Budget.MarkTruncated()
	}
	result["fields"] = out
	return result, nil
}

func renderListLike(rawClassName string, backing *jdi.ArrayValue, size int, depth int, opts Options) (any, error) {
	className := opts.deobfuscateClass(rawClassName)
	opts.Budget.TryConsume(len(className))

	shown := size
	capped := false
	if shown > budget.MaxCollectionItems {
		shown = budget.MaxCollectionItems
		capped = true
	}
	if shown > backing.Length {
		shown = backing.Length
	}

	items := make([]any, 0, shown)
	for i := 0; i < shown; i++ {
		el, err := backing.ElementAt(i)
		if err != nil {
			return nil, err
		}
		if !opts.Budget.TryConsume(1) {
			capped = true
			break
		}
		rendered, err := Render(el, depth-1, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, rendered)
	}
	if capped {
		opts.Budget.MarkTruncated()
	}
	return map[string]any{
		"class":  className,
		"length": size,
		"items":  items,
	}, nil
}

// Envelope is the {value, token_usage_estimate, truncated} wrapper every
// inspect-family RPC result shares.
type Envelope struct {
	Value             any  `json:"value"`
	TokenUsageEstimate int `json:"token_usage_estimate"`
	Truncated         bool `json:"truncated"`
}

// RenderEnvelope runs Render and packages the result with the budget's
// final accounting.
func RenderEnvelope(v jdi.Value, depth int, opts Options) (Envelope, error) {
	rendered, err := Render(v, depth, opts)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Value:              rendered,
		TokenUsageEstimate: opts.Budget.TokenUsageEstimate(),
		Truncated:          opts.Budget.Truncated(),
	}, nil
}

// ResolvePath implements spec.md §4.F's resolve_path: the first segment is
// either a visible local variable on frame or a prior obj_N handle;
// subsequent segments are field reads, mapping-aware in both directions.
func ResolvePath(frame jdi.StackFrame, path string, opts Options) (jdi.Value, error) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return jdi.Value{}, fmt.Errorf("empty variable path")
	}

	current, err := resolveFirstSegment(frame, segments[0], opts)
	if err != nil {
		return jdi.Value{}, err
	}
	for _, seg := range segments[1:] {
		current, err = fieldOf(current, seg, opts.Mapping)
		if err != nil {
			return jdi.Value{}, err
		}
	}
	return current, nil
}

func resolveFirstSegment(frame jdi.StackFrame, name string, opts Options) (jdi.Value, error) {
	if opts.Lookup != nil {
		if v, ok := opts.Lookup(name); ok {
			return v, nil
		}
	}
	vars, err := frame.VisibleVariables()
	if err != nil {
		return jdi.Value{}, err
	}
	for _, lv := range vars {
		if lv.Name() == name {
			return frame.GetLocalValue(lv)
		}
	}
	return jdi.Value{}, fmt.Errorf("no such local variable or object handle: %s", name)
}

// fieldOf reads field `name` (a user-typed, possibly-original name) off a
// traversal step's current value.
func fieldOf(v jdi.Value, name string, m *mapping.Mapping) (jdi.Value, error) {
	switch v.Kind {
	case jdi.KindNull, jdi.KindVoid:
		return jdi.Value{}, fmt.Errorf("cannot read field %q of null", name)
	case jdi.KindObject:
	default:
		return jdi.Value{}, fmt.Errorf("cannot read field %q of a non-object value", name)
	}
	if v.Object.Collected {
		return jdi.Value{}, jdi.ErrObjectCollected
	}
	raw := name
	if m != nil {
		if obf, ok := m.ObfuscateField(v.Object.ClassName, name); ok {
			raw = obf
		}
	}
	fv, ok, err := v.Object.FieldByName(raw)
	if err != nil {
		return jdi.Value{}, err
	}
	if !ok {
		return jdi.Value{}, fmt.Errorf("no such field: %s", name)
	}
	return fv, nil
}

// ToCondition coerces a resolved JDI value into the tagged union
// internal/condition evaluates over.
func ToCondition(v jdi.Value) (condition.Value, error) {
	switch v.Kind {
	case jdi.KindVoid, jdi.KindNull:
		return condition.Null(), nil
	case jdi.KindBool:
		return condition.Bool(v.Bool), nil
	case jdi.KindByte, jdi.KindShort, jdi.KindInt, jdi.KindLong, jdi.KindFloat, jdi.KindDouble:
		return condition.Number(v.Number), nil
	case jdi.KindChar:
		return condition.Char(rune(int32(v.Number))), nil
	case jdi.KindString:
		return condition.Text(v.Str), nil
	case jdi.KindObject:
		return condition.Object(v.Object.ClassName), nil
	case jdi.KindArray:
		return condition.Object(v.Array.ClassName), nil
	default:
		return condition.Value{}, fmt.Errorf("unsupported value kind for condition evaluation")
	}
}

// ConditionResolver adapts ResolvePath into the condition.Resolver hook a
// compiled condition evaluates a breakpoint hit's frame against.
func ConditionResolver(frame jdi.StackFrame, opts Options) condition.Resolver {
	return func(path []string) (condition.Value, error) {
		v, err := ResolvePath(frame, strings.Join(path, "."), opts)
		if err != nil {
			return condition.Value{}, err
		}
		return ToCondition(v)
	}
}

// Evaluate implements spec.md §4.F's evaluate(): a ".toString()" suffix
// invokes the zero-arg toString on the resolved value; any other
// parenthesized expression is unsupported; a bare path is inspected at
// depth 1.
func Evaluate(frame jdi.StackFrame, thread jdi.ThreadReference, expr string, opts Options) (Envelope, error) {
	expr = strings.TrimSpace(expr)

	if base, ok := strings.CutSuffix(expr, ".toString()"); ok {
		return evaluateToString(frame, thread, base, opts)
	}
	if strings.ContainsAny(expr, "()") {
		return Envelope{}, ErrEvalUnsupported
	}

	v, err := ResolvePath(frame, expr, opts)
	if err != nil {
		return Envelope{}, err
	}
	return RenderEnvelope(v, 1, opts)
}

// RenderToString is the "engine's default textual form" spec.md §4.F falls
// back to from evaluate() and that logpoint message rendering uses for
// {path} placeholders — a plain, unbounded string, not the budgeted JSON
// Render produces.
func RenderToString(v jdi.Value) string {
	switch v.Kind {
	case jdi.KindVoid, jdi.KindNull:
		return "null"
	case jdi.KindBool:
		return strconv.FormatBool(v.Bool)
	case jdi.KindChar:
		return string(rune(int32(v.Number)))
	case jdi.KindByte, jdi.KindShort, jdi.KindInt, jdi.KindLong:
		return strconv.FormatInt(int64(v.Number), 10)
	case jdi.KindFloat, jdi.KindDouble:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case jdi.KindString:
		return v.Str
	case jdi.KindArray:
		return fmt.Sprintf("%s[%d]", v.Array.ClassName, v.Array.Length)
	case jdi.KindObject:
		return v.Object.ClassName
	default:
		return ""
	}
}

func evaluateToString(frame jdi.StackFrame, thread jdi.ThreadReference, base string, opts Options) (Envelope, error) {
	v, err := ResolvePath(frame, base, opts)
	if err != nil {
		return Envelope{}, err
	}
	if v.Kind != jdi.KindObject {
		return RenderEnvelope(v, 1, opts)
	}
	if v.Object.Collected {
		return Envelope{}, jdi.ErrObjectCollected
	}
	s, ok, err := v.Object.InvokeToString(thread)
	if err != nil {
		return Envelope{}, err
	}
	if !ok {
		return RenderEnvelope(v, 1, opts)
	}
	rendered := renderString(s, opts)
	return Envelope{
		Value:              rendered,
		TokenUsageEstimate: opts.Budget.TokenUsageEstimate(),
		Truncated:          opts.Budget.Truncated(),
	}, nil
}
