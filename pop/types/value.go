package types

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Kind is the variant tag of a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindLong
	KindDouble
	KindText
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindDouble:
		return "double"
	case KindText:
		return "text"
	case KindOpaque:
		return "opaque"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Numeric reports whether values of kind k always support ordering.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindLong || k == KindDouble
}

// Ordered is implemented by opaque payloads that support ordering
// comparisons. Compare returns a negative number, zero or a positive number
// when the receiver is less than, equal to or greater than other.
type Ordered interface {
	Compare(other any) int
}

// Equaler is implemented by opaque payloads that define their own equality.
// Other payloads are compared with == when comparable and with
// reflect.DeepEqual otherwise.
type Equaler interface {
	Equal(other any) bool
}

// Value is a tagged attribute value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	o    any
}

func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func Int(v int32) Value      { return Value{kind: KindInt, i: int64(v)} }
func Long(v int64) Value     { return Value{kind: KindLong, i: v} }
func Double(v float64) Value { return Value{kind: KindDouble, f: v} }
func Text(v string) Value    { return Value{kind: KindText, s: v} }

// Opaque wraps an arbitrary payload. A nil payload yields the null Value.
func Opaque(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: KindOpaque, o: v}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.kind == KindNone }

// Orderable reports whether v supports ordering comparisons on its own.
// Bool and Text values order only where a schema declares them orderable.
func (v Value) Orderable() bool {
	switch v.kind {
	case KindInt, KindLong, KindDouble:
		return true
	case KindOpaque:
		_, ok := v.o.(Ordered)
		return ok
	default:
		return false
	}
}

func (v Value) AsBool() bool      { return v.b }
func (v Value) AsLong() int64     { return v.i }
func (v Value) AsDouble() float64 { return v.f }
func (v Value) AsText() string    { return v.s }
func (v Value) AsOpaque() any     { return v.o }

// Equal reports whether v and other have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt, KindLong:
		return v.i == other.i
	case KindDouble:
		return v.f == other.f
	case KindText:
		return v.s == other.s
	case KindOpaque:
		if eq, ok := v.o.(Equaler); ok {
			return eq.Equal(other.o)
		}
		return opaqueEqual(v.o, other.o)
	}
	return false
}

func opaqueEqual(a, b any) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders v against other. ok is false when the kinds differ, the
// kind has no natural order or either double is NaN. Bool and Text always order here; whether a
// property may be compared with an ordering comparator is decided by the
// validator, not by Compare.
func (v Value) Compare(other Value) (c int, ok bool) {
	if v.kind != other.kind {
		return 0, false
	}
	switch v.kind {
	case KindBool:
		switch {
		case v.b == other.b:
			return 0, true
		case !v.b:
			return -1, true
		default:
			return 1, true
		}
	case KindInt, KindLong:
		return cmpInt64(v.i, other.i), true
	case KindDouble:
		// NaN is unordered.
		if math.IsNaN(v.f) || math.IsNaN(other.f) {
			return 0, false
		}
		switch {
		case v.f < other.f:
			return -1, true
		case v.f > other.f:
			return 1, true
		default:
			return 0, true
		}
	case KindText:
		switch {
		case v.s < other.s:
			return -1, true
		case v.s > other.s:
			return 1, true
		default:
			return 0, true
		}
	case KindOpaque:
		if ord, isOrdered := v.o.(Ordered); isOrdered {
			return ord.Compare(other.o), true
		}
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "<null>"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt, KindLong:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s)
	default:
		return fmt.Sprintf("%v", v.o)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
