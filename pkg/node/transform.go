package node

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/kinetic/pkg/errors"
)

// TransformProperty enumerates the primitives of a transform node.
type TransformProperty uint8

const (
	TranslateX TransformProperty = iota + 1
	TranslateY
	TranslateZ
	Scale
	ScaleX
	ScaleY
	Rotate
	RotateX
	RotateY
	RotateZ
	SkewX
	SkewY
	Perspective
	Matrix
)

var transformNames = map[TransformProperty]string{
	TranslateX:  "translateX",
	TranslateY:  "translateY",
	TranslateZ:  "translateZ",
	Scale:       "scale",
	ScaleX:      "scaleX",
	ScaleY:      "scaleY",
	Rotate:      "rotate",
	RotateX:     "rotateX",
	RotateY:     "rotateY",
	RotateZ:     "rotateZ",
	SkewX:       "skewX",
	SkewY:       "skewY",
	Perspective: "perspective",
	Matrix:      "matrix",
}

func (p TransformProperty) String() string {
	if n, ok := transformNames[p]; ok {
		return n
	}
	return fmt.Sprintf("transform(%d)", uint8(p))
}

// ParseTransformProperty resolves a primitive name. Matching is case-insensitive.
func ParseTransformProperty(name string) (TransformProperty, bool) {
	for p, n := range transformNames {
		if strings.EqualFold(n, name) {
			return p, true
		}
	}
	return 0, false
}

// Primitive returns the 4x4 matrix of a single primitive with scalar operand x.
// Matrix steps ignore x and use their constant matrix.
func (s TransformStep) Primitive(x float64) mgl64.Mat4 {
	switch s.Property {
	case TranslateX:
		return mgl64.Translate3D(x, 0, 0)
	case TranslateY:
		return mgl64.Translate3D(0, x, 0)
	case TranslateZ:
		return mgl64.Translate3D(0, 0, x)
	case Scale:
		return mgl64.Scale3D(x, x, 1)
	case ScaleX:
		return mgl64.Scale3D(x, 1, 1)
	case ScaleY:
		return mgl64.Scale3D(1, x, 1)
	case Rotate, RotateZ:
		return mgl64.HomogRotate3DZ(x)
	case RotateX:
		return mgl64.HomogRotate3DX(x)
	case RotateY:
		return mgl64.HomogRotate3DY(x)
	case SkewX:
		m := mgl64.Ident4()
		m.Set(0, 1, math.Tan(x))
		return m
	case SkewY:
		m := mgl64.Ident4()
		m.Set(1, 0, math.Tan(x))
		return m
	case Perspective:
		m := mgl64.Ident4()
		if x != 0 {
			m.Set(3, 2, -1/x)
		}
		return m
	case Matrix:
		return mgl64.Mat4(s.Matrix)
	}
	return mgl64.Ident4()
}

// Compose multiplies the primitives in declaration order, each one
// pre-multiplied onto the running result: M = Pn * ... * P2 * P1.
// operands[i] is the scalar operand of steps[i].
func Compose(steps []TransformStep, operands []float64) mgl64.Mat4 {
	m := mgl64.Ident4()
	for i, s := range steps {
		m = s.Primitive(operands[i]).Mul4(m)
	}
	return m
}

func parseTransform(raw map[string]any) (Params, error) {
	var r struct {
		Transform []struct {
			Property string `mapstructure:"property"`
			Value    any    `mapstructure:"value"`
			Node     *int64 `mapstructure:"node"`
		} `mapstructure:"transform"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	p := &TransformParams{}
	for i, e := range r.Transform {
		prop, ok := ParseTransformProperty(e.Property)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "transform[%d]: unknown property %q", i, e.Property)
		}
		step := TransformStep{Property: prop}
		switch {
		case e.Node != nil && e.Value != nil:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "transform[%d]: set either value or node, not both", i)
		case prop == Matrix:
			if e.Node != nil {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "transform[%d]: matrix takes a constant value", i)
			}
			m, err := parseMatrix(e.Value)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "transform[%d]", i)
			}
			step.Matrix = m
		case e.Node != nil:
			id, err := toID(fmt.Sprintf("transform[%d].node", i), *e.Node)
			if err != nil {
				return nil, err
			}
			step.Node, step.HasNode = id, true
		case e.Value != nil:
			f, err := ParseScalar(e.Value)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "transform[%d].value", i)
			}
			step.Value = f
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "transform[%d]: %s needs a value or node", i, prop)
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func parseMatrix(x any) ([16]float64, error) {
	var m [16]float64
	list, ok := x.([]any)
	if !ok {
		return m, fmt.Errorf("matrix must be a list of 16 numbers, got %T", x)
	}
	if len(list) != 16 {
		return m, fmt.Errorf("matrix must have 16 entries, got %d", len(list))
	}
	for i, e := range list {
		f, err := ParseScalar(e)
		if err != nil {
			return m, fmt.Errorf("matrix[%d]: %w", i, err)
		}
		m[i] = f
	}
	return m, nil
}
