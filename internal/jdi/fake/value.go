package fake

import "github.com/mabhi256/jdiag-bridge/internal/jdi"

func Null() jdi.Value { return jdi.Value{Kind: jdi.KindNull} }
func Bool(b bool) jdi.Value { return jdi.Value{Kind: jdi.KindBool, Bool: b} }
func Int(n int) jdi.Value { return jdi.Value{Kind: jdi.KindInt, Number: float64(n)} }
func Long(n int64) jdi.Value { return jdi.Value{Kind: jdi.KindLong, Number: float64(n)} }
func Double(n float64) jdi.Value { return jdi.Value{Kind: jdi.KindDouble, Number: n} }
func Char(c rune) jdi.Value { return jdi.Value{Kind: jdi.KindChar, Number: float64(c)} }
func Str(s string) jdi.Value { return jdi.Value{Kind: jdi.KindString, Str: s} }

// Object is a test builder for an ObjectValue backed by a plain field map;
// tests mutate Fields directly between calls for stateful scenarios (e.g.
// helper.seed changing between breakpoint hits).
type Object struct {
	UniqueID  int64
	ClassName string
	Fields    map[string]jdi.Value
	Statics   map[string]jdi.Value
	Order     []string // declaration order for Fields() enumeration

	ToString    string
	HasToString bool
	Collected   bool
}

func NewObject(vm *VM, className string) *Object {
	return &Object{
		UniqueID:  vm.nextID(),
		ClassName: className,
		Fields:    make(map[string]jdi.Value),
		Statics:   make(map[string]jdi.Value),
	}
}

func (o *Object) Set(name string, v jdi.Value) *Object {
	if _, exists := o.Fields[name]; !exists {
		o.Order = append(o.Order, name)
	}
	o.Fields[name] = v
	return o
}

func (o *Object) SetStatic(name string, v jdi.Value) *Object {
	o.Statics[name] = v
	return o
}

func (o *Object) WithToString(s string) *Object {
	o.ToString = s
	o.HasToString = true
	return o
}

// Value renders this builder into a jdi.Value wired back to the builder's
// live field map, so later mutations through Set are visible to any
// previously-taken Value snapshot (identity caching relies on this).
func (o *Object) Value() jdi.Value {
	ov := &jdi.ObjectValue{
		UniqueID:  o.UniqueID,
		ClassName: o.ClassName,
		Collected: o.Collected,
		Fields: func() ([]jdi.Field, error) {
			if o.Collected {
				return nil, jdi.ErrObjectCollected
			}
			out := make([]jdi.Field, 0, len(o.Order))
			for _, name := range o.Order {
				out = append(out, jdi.Field{Name: name, Value: o.Fields[name]})
			}
			return out, nil
		},
		FieldByName: func(name string) (jdi.Value, bool, error) {
			if o.Collected {
				return jdi.Value{}, false, jdi.ErrObjectCollected
			}
			if v, ok := o.Fields[name]; ok {
				return v, true, nil
			}
			if v, ok := o.Statics[name]; ok {
				return v, true, nil
			}
			return jdi.Value{}, false, nil
		},
		InvokeToString: func(thread jdi.ThreadReference) (string, bool, error) {
			if o.Collected {
				return "", false, jdi.ErrObjectCollected
			}
			if !o.HasToString {
				return "", false, nil
			}
			return o.ToString, true, nil
		},
	}
	return jdi.Value{Kind: jdi.KindObject, Object: ov}
}

// Array is a test builder for a true JDI array reference.
type Array struct {
	UniqueID  int64
	ClassName string
	Elements  []jdi.Value
}

func NewArray(vm *VM, className string, elements ...jdi.Value) *Array {
	return &Array{UniqueID: vm.nextID(), ClassName: className, Elements: elements}
}

func (a *Array) Value() jdi.Value {
	av := &jdi.ArrayValue{
		UniqueID:  a.UniqueID,
		ClassName: a.ClassName,
		Length:    len(a.Elements),
		ElementAt: func(i int) (jdi.Value, error) {
			if i < 0 || i >= len(a.Elements) {
				return jdi.Value{}, jdi.ErrObjectCollected
			}
			return a.Elements[i], nil
		},
	}
	return jdi.Value{Kind: jdi.KindArray, Array: av}
}

// ListLike builds an object whose fields imitate java.util.ArrayList: a
// "size" int field and a backing array field, so the value inspector's
// list-like detection (spec.md §4.F) recognizes it.
func ListLike(vm *VM, className, backingField string, elements ...jdi.Value) *Object {
	o := NewObject(vm, className)
	backing := NewArray(vm, "java.lang.Object[]", elements...)
	o.Set(backingField, backing.Value())
	o.Set("size", Int(len(elements)))
	return o
}
