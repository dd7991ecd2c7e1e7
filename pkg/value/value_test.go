package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func TestZeroValueIsUnset(t *testing.T) {
	var v Value
	if !v.IsUnset() {
		t.Fatalf("zero Value kind = %v, want unset", v.Kind())
	}
	if v.Truthy() {
		t.Error("unset should not be truthy")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"zero", Number(0), false},
		{"negative zero", Number(math.Copysign(0, -1)), false},
		{"one", Number(1), true},
		{"nan", Number(math.NaN()), true},
		{"string", String(""), true},
		{"matrix", Matrix(mgl64.Ident4()), true},
		{"map", Map(nil), true},
		{"invalid", Invalid("boom"), false},
		{"unset", Unset(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same number", Number(1.5), Number(1.5), true},
		{"nan equals nan", Number(math.NaN()), Number(math.NaN()), true},
		{"different kinds", Number(1), String("1"), false},
		{"strings", String("x"), String("x"), true},
		{"invalid reasons", Invalid("a"), Invalid("b"), false},
		{"matrices", Matrix(mgl64.Translate3D(1, 2, 3)), Matrix(mgl64.Translate3D(1, 2, 3)), true},
		{"maps", Map(Props{"a": Number(1)}), Map(Props{"a": Number(1)}), true},
		{"maps differ", Map(Props{"a": Number(1)}), Map(Props{"a": Number(2)}), false},
		{"unset", Unset(), Unset(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromNative(t *testing.T) {
	v, ok := FromNative(map[string]any{
		"x":     1,
		"flag":  true,
		"label": "hi",
		"inner": map[string]any{"y": 2.5},
	})
	if !ok {
		t.Fatal("FromNative() failed")
	}
	want := Map(Props{
		"x":     Number(1),
		"flag":  Number(1),
		"label": String("hi"),
		"inner": Map(Props{"y": Number(2.5)}),
	})
	if !v.Equal(want) {
		t.Errorf("FromNative() = %v, want %v", v, want)
	}

	if _, ok := FromNative([]int{1}); ok {
		t.Error("FromNative([]int) should fail")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(0.5), "0.5"},
		{Number(10), "10"},
		{String("x"), "x"},
		{Invalid("bad operand"), "invalid(bad operand)"},
		{Unset(), "unset"},
		{Map(Props{"b": Number(2), "a": Number(1)}), "{a: 1, b: 2}"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Props{
		"opacity": Number(0.5),
		"broken":  Number(math.NaN()),
		"label":   String("x"),
		"bad":     Invalid("type mismatch"),
	})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	want := map[string]any{
		"opacity": 0.5,
		"broken":  "NaN",
		"label":   "x",
		"bad":     map[string]any{"invalid": "type mismatch"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestPropsKeysSorted(t *testing.T) {
	p := Props{"z": Number(1), "a": Number(2), "m": Number(3)}
	if diff := cmp.Diff([]string{"a", "m", "z"}, p.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}
