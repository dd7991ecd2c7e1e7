package node

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/kinetic/pkg/errors"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if k, ok := ParseKind("CLOCKSTART"); !ok || k != KindClockStart {
		t.Errorf("ParseKind is not case-insensitive: %v %v", k, ok)
	}
	if _, ok := ParseKind("nope"); ok {
		t.Error("ParseKind(nope) should fail")
	}
}

func TestParseParents(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		raw     map[string]any
		parents []ID
		refs    []ID
	}{
		{"value", KindValue, nil, nil, nil},
		{"op", KindOp, map[string]any{"op": "add", "input": []any{1, 2}}, []ID{1, 2}, []ID{1, 2}},
		{"op float ids", KindOp, map[string]any{"op": "abs", "input": []any{4.0}}, []ID{4}, []ID{4}},
		{"interpolate", KindInterpolate, map[string]any{
			"input": 3, "inputRange": []any{0, 1}, "outputRange": []any{"0deg", "90deg"},
		}, []ID{3}, []ID{3}},
		{"style", KindStyle, map[string]any{"style": map[string]any{"opacity": 2, "left": 1}}, []ID{1, 2}, []ID{1, 2}},
		{"props", KindProps, map[string]any{"props": map[string]any{"style": 9}}, []ID{9}, []ID{9}},
		{"set", KindSet, map[string]any{"what": 1, "value": 2}, []ID{2}, []ID{2, 1}},
		{"clockStart", KindClockStart, map[string]any{"clock": 5}, []ID{5}, []ID{5}},
		{"event", KindEvent, map[string]any{
			"source":     1,
			"argMapping": []any{map[string]any{"path": []any{"nativeEvent", "x"}, "node": 2}},
		}, []ID{1}, []ID{1, 2}},
		{"event no source", KindEvent, map[string]any{
			"argMapping": []any{map[string]any{"path": "x", "node": 2}},
		}, nil, []ID{2}},
		{"cond", KindCond, map[string]any{"cond": 1, "ifBlock": 2}, []ID{1, 2}, []ID{1, 2}},
		{"cond else", KindCond, map[string]any{"cond": 1, "ifBlock": 2, "elseBlock": 3}, []ID{1, 2, 3}, []ID{1, 2, 3}},
		{"block", KindBlock, map[string]any{"block": []any{3, 1}}, []ID{3, 1}, []ID{3, 1}},
		{"transform", KindTransform, map[string]any{"transform": []any{
			map[string]any{"property": "translateX", "node": 4},
			map[string]any{"property": "rotate", "value": "45deg"},
		}}, []ID{4}, []ID{4}},
		{"bezier", KindBezier, map[string]any{"input": 1, "mX1": 0.25, "mY1": 0.1, "mX2": 0.25, "mY2": 1}, []ID{1}, []ID{1}},
		{"debug", KindDebug, map[string]any{"message": "x", "value": 1}, []ID{1}, []ID{1}},
		{"call", KindCall, map[string]any{"input": []any{1, 2}}, []ID{1, 2}, []ID{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.kind, tt.raw)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if p.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", p.Kind(), tt.kind)
			}
			if diff := cmp.Diff(tt.parents, p.Parents()); diff != "" {
				t.Errorf("Parents() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.refs, p.References()); diff != "" {
				t.Errorf("References() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		raw  map[string]any
	}{
		{"unknown key", KindValue, map[string]any{"value": 1, "extra": true}},
		{"unknown op", KindOp, map[string]any{"op": "frobnicate", "input": []any{1}}},
		{"unary arity", KindOp, map[string]any{"op": "sqrt", "input": []any{1, 2}}},
		{"compare arity", KindOp, map[string]any{"op": "eq", "input": []any{1}}},
		{"negative id", KindAlways, map[string]any{"what": -1}},
		{"fractional id", KindAlways, map[string]any{"what": 1.7}},
		{"fractional input", KindOp, map[string]any{"op": "add", "input": []any{1, 2.5}}},
		{"fractional attr id", KindProps, map[string]any{"props": map[string]any{"opacity": 2.2}}},
		{"nan id", KindAlways, map[string]any{"what": math.NaN()}},
		{"missing id", KindSet, map[string]any{"what": 1}},
		{"short range", KindInterpolate, map[string]any{"input": 1, "inputRange": []any{0}, "outputRange": []any{0}}},
		{"range length", KindInterpolate, map[string]any{"input": 1, "inputRange": []any{0, 1}, "outputRange": []any{0}}},
		{"decreasing range", KindInterpolate, map[string]any{"input": 1, "inputRange": []any{1, 0}, "outputRange": []any{0, 1}}},
		{"bad angle", KindConst, map[string]any{"value": "fast"}},
		{"missing const", KindConst, nil},
		{"bad attr name", KindStyle, map[string]any{"style": map[string]any{"bad name": 1}}},
		{"empty block", KindBlock, map[string]any{"block": []any{}}},
		{"transform both", KindTransform, map[string]any{"transform": []any{
			map[string]any{"property": "scale", "value": 1, "node": 2},
		}}},
		{"transform unknown", KindTransform, map[string]any{"transform": []any{
			map[string]any{"property": "wobble", "value": 1},
		}}},
		{"matrix short", KindTransform, map[string]any{"transform": []any{
			map[string]any{"property": "matrix", "value": []any{1, 0, 0}},
		}}},
		{"bezier x range", KindBezier, map[string]any{"input": 1, "mX1": 2, "mY1": 0, "mX2": 0, "mY2": 1}},
		{"event empty path", KindEvent, map[string]any{"argMapping": []any{map[string]any{"path": []any{}, "node": 1}}}},
		{"clock params", KindClock, map[string]any{"rate": 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.kind, tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %q, want INVALID_CONFIG (%v)", errors.GetCode(err), err)
			}
		})
	}
}

func TestParseNormalizesAngles(t *testing.T) {
	p, err := Parse(KindInterpolate, map[string]any{
		"input":       1,
		"inputRange":  []any{0, 1},
		"outputRange": []any{"0deg", "180deg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	ip := p.(*InterpolateParams)
	if math.Abs(ip.OutputRange[1]-math.Pi) > 1e-12 {
		t.Errorf("outputRange[1] = %v, want pi", ip.OutputRange[1])
	}
	if got := ip.At(0.5); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("At(0.5) = %v, want pi/2", got)
	}
}

func TestParseValueInitial(t *testing.T) {
	p, err := Parse(KindValue, map[string]any{"value": "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := p.(*ValueParams).Initial.Str(); s != "hello" {
		t.Errorf("initial = %v, want hello", p.(*ValueParams).Initial)
	}

	p, err = Parse(KindValue, nil)
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := p.(*ValueParams).Initial.Float(); !ok || f != 0 {
		t.Errorf("default initial = %v, want 0", p.(*ValueParams).Initial)
	}
}

func TestParseMatrix(t *testing.T) {
	ident := []any{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 0, 1}
	p, err := Parse(KindTransform, map[string]any{"transform": []any{
		map[string]any{"property": "matrix", "value": ident},
	}})
	if err != nil {
		t.Fatal(err)
	}
	step := p.(*TransformParams).Steps[0]
	if step.Matrix[12] != 5 || step.Matrix[13] != 6 {
		t.Errorf("matrix translation = %v, %v", step.Matrix[12], step.Matrix[13])
	}
}
