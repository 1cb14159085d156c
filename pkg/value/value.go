// Package value provides the tri-state value primitive underlying every
// declared field of a shell resource: a value is Known, Null (explicitly
// absent), or Unknown (to be computed during apply).
package value

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind is the state of a Value.
type Kind uint8

const (
	// KindNull marks a value as explicitly absent.
	// The zero Value is Null.
	KindNull Kind = iota

	// KindKnown marks a value as present and resolved.
	KindKnown

	// KindUnknown marks a value that will be produced during apply.
	KindUnknown
)

// Value holds a T in one of three states: Known, Null, or Unknown.
// The distinction between Null ("absent") and Unknown ("not yet computed")
// is load-bearing: plan and apply logic branch on it.
type Value[T any] struct {
	val  T
	kind Kind
}

// Known returns a Value holding v.
func Known[T any](v T) Value[T] {
	return Value[T]{val: v, kind: KindKnown}
}

// Null returns an explicitly absent Value.
func Null[T any]() Value[T] {
	return Value[T]{kind: KindNull}
}

// Unknown returns a Value that will be computed during apply.
func Unknown[T any]() Value[T] {
	return Value[T]{kind: KindUnknown}
}

// Kind returns the state of the value.
func (v Value[T]) Kind() Kind { return v.kind }

// IsKnown reports whether the value is resolved.
func (v Value[T]) IsKnown() bool { return v.kind == KindKnown }

// IsNull reports whether the value is explicitly absent.
func (v Value[T]) IsNull() bool { return v.kind == KindNull }

// IsUnknown reports whether the value is still to be computed.
func (v Value[T]) IsUnknown() bool { return v.kind == KindUnknown }

// Get returns the held value and whether it is Known.
func (v Value[T]) Get() (T, bool) {
	return v.val, v.kind == KindKnown
}

// Or returns the held value if Known, else def.
func (v Value[T]) Or(def T) T {
	if v.kind == KindKnown {
		return v.val
	}
	return def
}

// String is a tri-state string value.
type String = Value[string]

// StringMap is a tri-state ordered mapping of string keys to tri-state
// string values. The container and each element carry their state
// independently.
type StringMap = Value[map[string]String]

// Strings constructs a Known StringMap from plain key/value pairs.
func Strings(m map[string]string) StringMap {
	out := make(map[string]String, len(m))
	for k, v := range m {
		out[k] = Known(v)
	}
	return Known(out)
}

// SortedKeys returns the keys of a Known map in sorted order.
// Returns nil when the map is Null or Unknown.
func SortedKeys[T any](m Value[map[string]Value[T]]) []string {
	inner, ok := m.Get()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(inner))
	for k := range inner {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GoString implements fmt.GoStringer for readable test failures.
func (v Value[T]) GoString() string {
	switch v.kind {
	case KindKnown:
		return fmt.Sprintf("value.Known(%#v)", v.val)
	case KindUnknown:
		return "value.Unknown()"
	default:
		return "value.Null()"
	}
}

// MarshalJSON encodes Known values as the underlying value and Null as
// JSON null. Unknown values are rejected: they must never escape a
// completed reconciliation step.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindKnown:
		return json.Marshal(v.val)
	case KindNull:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("cannot marshal unknown value")
	}
}

// UnmarshalJSON decodes JSON null as Null and anything else as Known.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null[T]()
		return nil
	}
	var inner T
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	*v = Known(inner)
	return nil
}
