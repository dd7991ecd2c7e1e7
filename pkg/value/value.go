// Package value defines the values that flow along the edges of an animation
// graph.
//
// A [Value] is a small tagged union. Most nodes produce numbers; Transform nodes
// produce a 4x4 matrix, Style and Props nodes produce a [Props] map, Concat
// produces a string. Two further states exist:
//
//   - Unset: the node has never produced anything (or a Cond without an else
//     branch took the missing branch).
//   - Invalid: evaluation hit a type mismatch. Invalid values propagate through
//     arithmetic instead of being coerced to zero, so a broken subtree stays
//     visible at the sink that consumes it.
//
// Values are immutable once built; [Props] maps handed to a Value must not be
// modified afterwards.
package value

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindUnset Kind = iota
	KindNumber
	KindString
	KindMatrix
	KindMap
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMatrix:
		return "matrix"
	case KindMap:
		return "map"
	case KindInvalid:
		return "invalid"
	default:
		return "unset"
	}
}

// Props maps attribute names to values. It is the output of Style and Props
// nodes and the payload of view attribute updates.
type Props map[string]Value

// Keys returns the attribute names in sorted order.
func (p Props) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Equal reports whether p and o hold the same attributes with equal values.
func (p Props) Equal(o Props) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Native converts the map into plain Go values, see [Value.Native].
func (p Props) Native() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Native()
	}
	return out
}

// Value is a tagged union of the values a node can produce.
// The zero value is Unset.
type Value struct {
	kind  Kind
	num   float64
	str   string // string payload, or the reason of an Invalid value
	mat   *mgl64.Mat4
	props Props
}

// Unset returns the value of a node that has not produced anything.
func Unset() Value { return Value{} }

// Number returns a numeric value. NaN and infinities are ordinary numbers.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Matrix returns a 4x4 transform matrix value.
func Matrix(m mgl64.Mat4) Value { return Value{kind: KindMatrix, mat: &m} }

// Map returns an attribute map value.
func Map(p Props) Value {
	if p == nil {
		p = Props{}
	}
	return Value{kind: KindMap, props: p}
}

// Invalid returns the sentinel produced by a failed evaluation.
func Invalid(reason string) Value { return Value{kind: KindInvalid, str: reason} }

// Invalidf is Invalid with a formatted reason.
func Invalidf(format string, args ...any) Value {
	return Invalid(fmt.Sprintf(format, args...))
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUnset() bool   { return v.kind == KindUnset }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsInvalid() bool { return v.kind == KindInvalid }

// Float returns the numeric payload and whether v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Mat returns the matrix payload and whether v is a matrix.
func (v Value) Mat() (mgl64.Mat4, bool) {
	if v.kind != KindMatrix {
		return mgl64.Mat4{}, false
	}
	return *v.mat, true
}

// Props returns the map payload and whether v is a map.
func (v Value) Props() (Props, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.props, true
}

// Reason returns why an Invalid value was produced, or "" for other kinds.
func (v Value) Reason() string {
	if v.kind != KindInvalid {
		return ""
	}
	return v.str
}

// Truthy reports whether v selects the "if" branch of a condition.
// Numbers are truthy when non-zero (NaN included); strings, matrices and maps
// are always truthy; Unset and Invalid are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0
	case KindString, KindMatrix, KindMap:
		return true
	default:
		return false
	}
}

// Equal reports whether v and o hold the same variant and payload.
// Two NaN numbers compare equal so that cached values can be compared.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindString, KindInvalid:
		return v.str == o.str
	case KindMatrix:
		return *v.mat == *o.mat
	case KindMap:
		return v.props.Equal(o.props)
	default:
		return true
	}
}

// Native converts v into plain Go values suitable for host bridges:
// float64, string, [16]float64 (column-major), map[string]any, or nil.
// Invalid values become a map with a single "invalid" key.
func (v Value) Native() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindMatrix:
		return [16]float64(*v.mat)
	case KindMap:
		return v.props.Native()
	case KindInvalid:
		return map[string]any{"invalid": v.str}
	default:
		return nil
	}
}

// FromNative converts plain Go values (as produced by JSON, TOML or YAML
// decoders) into a Value. Booleans become 1/0; nested maps become Props.
func FromNative(x any) (Value, bool) {
	switch t := x.(type) {
	case nil:
		return Unset(), true
	case float64:
		return Number(t), true
	case float32:
		return Number(float64(t)), true
	case int:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case uint32:
		return Number(float64(t)), true
	case bool:
		return Bool(t), true
	case string:
		return String(t), true
	case Value:
		return t, true
	case map[string]any:
		p := make(Props, len(t))
		for k, e := range t {
			ev, ok := FromNative(e)
			if !ok {
				return Value{}, false
			}
			p[k] = ev
		}
		return Map(p), true
	default:
		return Value{}, false
	}
}

// String formats v for logs and diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindString:
		return v.str
	case KindMatrix:
		parts := make([]string, 16)
		for i, f := range *v.mat {
			parts[i] = FormatNumber(f)
		}
		return "matrix(" + strings.Join(parts, ", ") + ")"
	case KindMap:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.props.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v.props[k].String())
		}
		b.WriteByte('}')
		return b.String()
	case KindInvalid:
		return "invalid(" + v.str + ")"
	default:
		return "unset"
	}
}

// FormatNumber formats f with the shortest representation that round-trips.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MarshalJSON encodes v using the shapes of [Value.Native]. Non-finite numbers
// are encoded as the strings "NaN", "Infinity" and "-Infinity".
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		switch {
		case math.IsNaN(v.num):
			return []byte(`"NaN"`), nil
		case math.IsInf(v.num, 1):
			return []byte(`"Infinity"`), nil
		case math.IsInf(v.num, -1):
			return []byte(`"-Infinity"`), nil
		}
		return json.Marshal(v.num)
	case KindMap:
		return json.Marshal(v.props)
	default:
		return json.Marshal(v.Native())
	}
}
