package node

import (
	"math"
	"strings"

	"github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/value"
)

// Op enumerates the operators of an op node.
type Op uint8

const (
	// Unary
	OpSqrt Op = iota + 1
	OpLog
	OpSin
	OpCos
	OpTan
	OpAcos
	OpAsin
	OpAtan
	OpExp
	OpRound
	OpAbs
	OpFloor
	OpCeil
	OpNot
	OpDefined

	// Reduce, left to right
	OpAdd
	OpSub
	OpMultiply
	OpDivide
	OpPow
	OpModulo
	OpMin
	OpMax

	// Comparison
	OpLessThan
	OpEq
	OpGreaterThan
	OpLessOrEq
	OpGreaterOrEq
	OpNeq

	// Short-circuit boolean
	OpAnd
	OpOr
)

// OpClass groups operators by how their inputs are consumed.
type OpClass uint8

const (
	ClassUnary OpClass = iota + 1
	ClassReduce
	ClassCompare
	ClassLogical
)

var opNames = map[Op]string{
	OpSqrt: "sqrt", OpLog: "log", OpSin: "sin", OpCos: "cos", OpTan: "tan",
	OpAcos: "acos", OpAsin: "asin", OpAtan: "atan", OpExp: "exp", OpRound: "round",
	OpAbs: "abs", OpFloor: "floor", OpCeil: "ceil", OpNot: "not", OpDefined: "defined",
	OpAdd: "add", OpSub: "sub", OpMultiply: "multiply", OpDivide: "divide",
	OpPow: "pow", OpModulo: "modulo", OpMin: "min", OpMax: "max",
	OpLessThan: "lessThan", OpEq: "eq", OpGreaterThan: "greaterThan",
	OpLessOrEq: "lessOrEq", OpGreaterOrEq: "greaterOrEq", OpNeq: "neq",
	OpAnd: "and", OpOr: "or",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "op(?)"
}

// ParseOp resolves an operator name. Matching is case-insensitive.
func ParseOp(name string) (Op, bool) {
	for o, n := range opNames {
		if strings.EqualFold(n, name) {
			return o, true
		}
	}
	return 0, false
}

// Class returns the operator's class.
func (o Op) Class() OpClass {
	switch {
	case o >= OpSqrt && o <= OpDefined:
		return ClassUnary
	case o >= OpAdd && o <= OpMax:
		return ClassReduce
	case o >= OpLessThan && o <= OpNeq:
		return ClassCompare
	default:
		return ClassLogical
	}
}

func (o Op) checkArity(n int) error {
	switch o.Class() {
	case ClassUnary:
		if n != 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "op %s takes 1 input, got %d", o, n)
		}
	case ClassCompare:
		if n != 2 {
			return errors.New(errors.ErrCodeInvalidConfig, "op %s takes 2 inputs, got %d", o, n)
		}
	default:
		if n < 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "op %s needs at least 1 input", o)
		}
	}
	return nil
}

// Apply computes a unary, reduce or comparison operator over already
// evaluated operands. Logical operators are evaluated lazily by the caller and
// are not accepted here.
//
// Invalid operands propagate. Any other non-numeric operand yields an Invalid
// value, except for "defined" which reports 0 for it.
func (o Op) Apply(args []value.Value) value.Value {
	if o == OpDefined {
		f, ok := args[0].Float()
		return value.Bool(ok && !math.IsNaN(f))
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		if a.IsInvalid() {
			return a
		}
		f, ok := a.Float()
		if !ok {
			return value.Invalidf("%s: operand %d is %s, want number", o, i, a.Kind())
		}
		nums[i] = f
	}
	switch o.Class() {
	case ClassUnary:
		return value.Number(unary(o, nums[0]))
	case ClassReduce:
		acc := nums[0]
		for _, x := range nums[1:] {
			acc = reduce(o, acc, x)
		}
		return value.Number(acc)
	case ClassCompare:
		return value.Bool(compare(o, nums[0], nums[1]))
	default:
		return value.Invalidf("%s is evaluated lazily", o)
	}
}

func unary(o Op, a float64) float64 {
	switch o {
	case OpSqrt:
		return math.Sqrt(a)
	case OpLog:
		return math.Log(a)
	case OpSin:
		return math.Sin(a)
	case OpCos:
		return math.Cos(a)
	case OpTan:
		return math.Tan(a)
	case OpAcos:
		return math.Acos(a)
	case OpAsin:
		return math.Asin(a)
	case OpAtan:
		return math.Atan(a)
	case OpExp:
		return math.Exp(a)
	case OpRound:
		return math.Round(a)
	case OpAbs:
		return math.Abs(a)
	case OpFloor:
		return math.Floor(a)
	case OpCeil:
		return math.Ceil(a)
	case OpNot:
		if a == 0 {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func reduce(o Op, a, b float64) float64 {
	switch o {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		return a / b
	case OpPow:
		return math.Pow(a, b)
	case OpModulo:
		return math.Mod(math.Mod(a, b)+b, b)
	case OpMin:
		return math.Min(a, b)
	case OpMax:
		return math.Max(a, b)
	}
	return math.NaN()
}

func compare(o Op, a, b float64) bool {
	switch o {
	case OpLessThan:
		return a < b
	case OpEq:
		return a == b
	case OpGreaterThan:
		return a > b
	case OpLessOrEq:
		return a <= b
	case OpGreaterOrEq:
		return a >= b
	case OpNeq:
		return a != b
	}
	return false
}
