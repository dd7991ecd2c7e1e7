package node

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/go-viper/mapstructure/v2"

	"github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/value"
)

// Params is the validated, kind-specific configuration of a node.
// The concrete types are the *Params structs in this file.
type Params interface {
	// Kind returns the node kind these params configure.
	Kind() Kind
	// Parents returns the ids this node reads when it evaluates.
	Parents() []ID
	// References returns every id the node refers to, parents included.
	References() []ID
}

// ValueParams configures a settable leaf.
type ValueParams struct {
	Initial value.Value
}

// ConstParams configures an immutable scalar.
type ConstParams struct {
	Value float64
}

// OpParams configures an arithmetic, comparison or boolean operator.
type OpParams struct {
	Op    Op
	Input []ID
}

// InterpolateParams configures piecewise-linear interpolation. Angle
// breakpoints are already normalized to radians.
type InterpolateParams struct {
	Input       ID
	InputRange  []float64
	OutputRange []float64
}

// TransformStep is one primitive of a Transform node. Exactly one of Node or
// Value is meaningful: when HasNode is set the operand is read from Node at
// evaluation time. Matrix steps carry a constant column-major matrix instead.
type TransformStep struct {
	Property TransformProperty
	Value    float64
	Node     ID
	HasNode  bool
	Matrix   [16]float64
}

// TransformParams configures matrix composition.
type TransformParams struct {
	Steps []TransformStep
}

// StyleParams maps attribute names to child nodes.
type StyleParams struct {
	Style map[string]ID
}

// PropsParams maps attribute names to child nodes and is the view sink.
type PropsParams struct {
	Props map[string]ID
}

// ClockParams configures a clock. Clocks have no parameters.
type ClockParams struct{}

// ClockOpParams configures clockStart, clockStop and clockTest nodes.
type ClockOpParams struct {
	Op    Kind
	Clock ID
}

// SetParams configures a write of Value into the Value node What.
type SetParams struct {
	What  ID
	Value ID
}

// EventMapping binds one path of an inbound event payload to a Value node.
type EventMapping struct {
	Path []string
	Node ID
}

// EventParams configures an event node. Source, when present, is the payload
// forwarded outward; Mapping routes inbound payload fields into Value nodes.
type EventParams struct {
	Source    ID
	HasSource bool
	Mapping   []EventMapping
}

// BlockParams evaluates each child in order.
type BlockParams struct {
	Block []ID
}

// CondParams selects between two branches.
type CondParams struct {
	Cond    ID
	If      ID
	Else    ID
	HasElse bool
}

// AlwaysParams re-evaluates What whenever anything upstream of it changes.
type AlwaysParams struct {
	What ID
}

// ConcatParams joins the string forms of its inputs.
type ConcatParams struct {
	Input []ID
}

// BezierParams applies a cubic-bezier easing curve to Input.
type BezierParams struct {
	Input          ID
	X1, Y1, X2, Y2 float64
	curve          *unitBezier
}

// Ease maps progress t through the curve.
func (p *BezierParams) Ease(t float64) float64 {
	if p.curve == nil {
		p.curve = newUnitBezier(p.X1, p.Y1, p.X2, p.Y2)
	}
	return p.curve.solve(t)
}

// DebugParams logs the value of Value under Message.
type DebugParams struct {
	Message string
	Value   ID
}

// CallParams forwards the values of Input to the host.
type CallParams struct {
	Input []ID
}

func (*ValueParams) Kind() Kind       { return KindValue }
func (*ConstParams) Kind() Kind       { return KindConst }
func (*OpParams) Kind() Kind          { return KindOp }
func (*InterpolateParams) Kind() Kind { return KindInterpolate }
func (*TransformParams) Kind() Kind   { return KindTransform }
func (*StyleParams) Kind() Kind       { return KindStyle }
func (*PropsParams) Kind() Kind       { return KindProps }
func (*ClockParams) Kind() Kind       { return KindClock }
func (p *ClockOpParams) Kind() Kind   { return p.Op }
func (*SetParams) Kind() Kind         { return KindSet }
func (*EventParams) Kind() Kind       { return KindEvent }
func (*BlockParams) Kind() Kind       { return KindBlock }
func (*CondParams) Kind() Kind        { return KindCond }
func (*AlwaysParams) Kind() Kind      { return KindAlways }
func (*ConcatParams) Kind() Kind      { return KindConcat }
func (*BezierParams) Kind() Kind      { return KindBezier }
func (*DebugParams) Kind() Kind       { return KindDebug }
func (*CallParams) Kind() Kind        { return KindCall }

func (*ValueParams) Parents() []ID         { return nil }
func (*ConstParams) Parents() []ID         { return nil }
func (p *OpParams) Parents() []ID          { return p.Input }
func (p *InterpolateParams) Parents() []ID { return []ID{p.Input} }
func (p *TransformParams) Parents() []ID {
	var ids []ID
	for _, s := range p.Steps {
		if s.HasNode {
			ids = append(ids, s.Node)
		}
	}
	return ids
}
func (p *StyleParams) Parents() []ID   { return sortedMapIDs(p.Style) }
func (p *PropsParams) Parents() []ID   { return sortedMapIDs(p.Props) }
func (*ClockParams) Parents() []ID     { return nil }
func (p *ClockOpParams) Parents() []ID { return []ID{p.Clock} }
func (p *SetParams) Parents() []ID     { return []ID{p.Value} }
func (p *EventParams) Parents() []ID {
	if p.HasSource {
		return []ID{p.Source}
	}
	return nil
}
func (p *BlockParams) Parents() []ID { return p.Block }
func (p *CondParams) Parents() []ID {
	if p.HasElse {
		return []ID{p.Cond, p.If, p.Else}
	}
	return []ID{p.Cond, p.If}
}
func (p *AlwaysParams) Parents() []ID { return []ID{p.What} }
func (p *ConcatParams) Parents() []ID { return p.Input }
func (p *BezierParams) Parents() []ID { return []ID{p.Input} }
func (p *DebugParams) Parents() []ID  { return []ID{p.Value} }
func (p *CallParams) Parents() []ID   { return p.Input }

func (p *ValueParams) References() []ID       { return p.Parents() }
func (p *ConstParams) References() []ID       { return p.Parents() }
func (p *OpParams) References() []ID          { return p.Parents() }
func (p *InterpolateParams) References() []ID { return p.Parents() }
func (p *TransformParams) References() []ID   { return p.Parents() }
func (p *StyleParams) References() []ID       { return p.Parents() }
func (p *PropsParams) References() []ID       { return p.Parents() }
func (p *ClockParams) References() []ID       { return p.Parents() }
func (p *ClockOpParams) References() []ID     { return p.Parents() }
func (p *SetParams) References() []ID         { return []ID{p.Value, p.What} }
func (p *EventParams) References() []ID {
	ids := p.Parents()
	for _, m := range p.Mapping {
		ids = append(ids, m.Node)
	}
	return ids
}
func (p *BlockParams) References() []ID  { return p.Parents() }
func (p *CondParams) References() []ID   { return p.Parents() }
func (p *AlwaysParams) References() []ID { return p.Parents() }
func (p *ConcatParams) References() []ID { return p.Parents() }
func (p *BezierParams) References() []ID { return p.Parents() }
func (p *DebugParams) References() []ID  { return p.Parents() }
func (p *CallParams) References() []ID   { return p.Parents() }

func sortedMapIDs(m map[string]ID) []ID {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	ids := make([]ID, len(keys))
	for i, k := range keys {
		ids[i] = m[k]
	}
	return ids
}

// Parse validates raw parameters for kind and returns typed Params.
// Unknown keys are rejected. All failures carry errors.ErrCodeInvalidConfig.
func Parse(kind Kind, raw map[string]any) (Params, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	p, err := parse(kind, raw)
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s node", kind)
	}
	return p, nil
}

func parse(kind Kind, raw map[string]any) (Params, error) {
	switch kind {
	case KindValue:
		return parseValue(raw)
	case KindConst:
		return parseConst(raw)
	case KindOp:
		return parseOp(raw)
	case KindInterpolate:
		return parseInterpolate(raw)
	case KindTransform:
		return parseTransform(raw)
	case KindStyle:
		m, err := parseAttrMap(raw, "style")
		if err != nil {
			return nil, err
		}
		return &StyleParams{Style: m}, nil
	case KindProps:
		m, err := parseAttrMap(raw, "props")
		if err != nil {
			return nil, err
		}
		return &PropsParams{Props: m}, nil
	case KindClock:
		if err := decode(raw, &struct{}{}); err != nil {
			return nil, err
		}
		return &ClockParams{}, nil
	case KindClockStart, KindClockStop, KindClockTest:
		var r struct {
			Clock *int64 `mapstructure:"clock"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		id, err := requireID("clock", r.Clock)
		if err != nil {
			return nil, err
		}
		return &ClockOpParams{Op: kind, Clock: id}, nil
	case KindSet:
		var r struct {
			What  *int64 `mapstructure:"what"`
			Value *int64 `mapstructure:"value"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		what, err := requireID("what", r.What)
		if err != nil {
			return nil, err
		}
		val, err := requireID("value", r.Value)
		if err != nil {
			return nil, err
		}
		return &SetParams{What: what, Value: val}, nil
	case KindEvent:
		return parseEvent(raw)
	case KindBlock:
		var r struct {
			Block []int64 `mapstructure:"block"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		if len(r.Block) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "block node requires a non-empty \"block\" list")
		}
		ids, err := toIDs("block", r.Block)
		if err != nil {
			return nil, err
		}
		return &BlockParams{Block: ids}, nil
	case KindCond:
		var r struct {
			Cond      *int64 `mapstructure:"cond"`
			IfBlock   *int64 `mapstructure:"ifBlock"`
			ElseBlock *int64 `mapstructure:"elseBlock"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		cond, err := requireID("cond", r.Cond)
		if err != nil {
			return nil, err
		}
		ifb, err := requireID("ifBlock", r.IfBlock)
		if err != nil {
			return nil, err
		}
		p := &CondParams{Cond: cond, If: ifb}
		if r.ElseBlock != nil {
			if p.Else, err = toID("elseBlock", *r.ElseBlock); err != nil {
				return nil, err
			}
			p.HasElse = true
		}
		return p, nil
	case KindAlways:
		var r struct {
			What *int64 `mapstructure:"what"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		id, err := requireID("what", r.What)
		if err != nil {
			return nil, err
		}
		return &AlwaysParams{What: id}, nil
	case KindConcat, KindCall:
		var r struct {
			Input []int64 `mapstructure:"input"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		ids, err := toIDs("input", r.Input)
		if err != nil {
			return nil, err
		}
		if kind == KindConcat {
			return &ConcatParams{Input: ids}, nil
		}
		return &CallParams{Input: ids}, nil
	case KindBezier:
		return parseBezier(raw)
	case KindDebug:
		var r struct {
			Message string `mapstructure:"message"`
			Value   *int64 `mapstructure:"value"`
		}
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		id, err := requireID("value", r.Value)
		if err != nil {
			return nil, err
		}
		return &DebugParams{Message: r.Message, Value: id}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported node kind %s", kind)
	}
}

func parseValue(raw map[string]any) (Params, error) {
	var r struct {
		Value any `mapstructure:"value"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	switch t := r.Value.(type) {
	case nil:
		return &ValueParams{Initial: value.Number(0)}, nil
	case string:
		return &ValueParams{Initial: value.String(t)}, nil
	default:
		f, err := ParseScalar(t)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "value node: \"value\"")
		}
		return &ValueParams{Initial: value.Number(f)}, nil
	}
}

func parseConst(raw map[string]any) (Params, error) {
	var r struct {
		Value any `mapstructure:"value"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	if r.Value == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "const node requires \"value\"")
	}
	f, err := ParseScalar(r.Value)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "const node: \"value\"")
	}
	return &ConstParams{Value: f}, nil
}

func parseOp(raw map[string]any) (Params, error) {
	var r struct {
		Op    string  `mapstructure:"op"`
		Input []int64 `mapstructure:"input"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	op, ok := ParseOp(r.Op)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "op node: unknown operator %q", r.Op)
	}
	ids, err := toIDs("input", r.Input)
	if err != nil {
		return nil, err
	}
	if err := op.checkArity(len(ids)); err != nil {
		return nil, err
	}
	return &OpParams{Op: op, Input: ids}, nil
}

func parseInterpolate(raw map[string]any) (Params, error) {
	var r struct {
		Input       *int64 `mapstructure:"input"`
		InputRange  []any  `mapstructure:"inputRange"`
		OutputRange []any  `mapstructure:"outputRange"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	input, err := requireID("input", r.Input)
	if err != nil {
		return nil, err
	}
	in, err := parseRange("inputRange", r.InputRange)
	if err != nil {
		return nil, err
	}
	out, err := parseRange("outputRange", r.OutputRange)
	if err != nil {
		return nil, err
	}
	if len(in) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "interpolate node: inputRange needs at least 2 breakpoints, got %d", len(in))
	}
	if len(in) != len(out) {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "interpolate node: inputRange has %d entries but outputRange has %d", len(in), len(out))
	}
	for i := 1; i < len(in); i++ {
		if in[i] < in[i-1] {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "interpolate node: inputRange must be non-decreasing (index %d)", i)
		}
	}
	return &InterpolateParams{Input: input, InputRange: in, OutputRange: out}, nil
}

func parseRange(field string, raw []any) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, x := range raw {
		f, err := ParseScalar(x)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s[%d]", field, i)
		}
		if math.IsNaN(f) {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s[%d] is NaN", field, i)
		}
		out[i] = f
	}
	return out, nil
}

func parseAttrMap(raw map[string]any, field string) (map[string]ID, error) {
	var r map[string]map[string]int64
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	src, ok := r[field]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s node requires %q", field, field)
	}
	if len(r) != 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s node accepts only %q", field, field)
	}
	out := make(map[string]ID, len(src))
	for name, id := range src {
		if err := errors.ValidateAttributeName(name); err != nil {
			return nil, err
		}
		nid, err := toID(field+"."+name, id)
		if err != nil {
			return nil, err
		}
		out[name] = nid
	}
	return out, nil
}

func parseEvent(raw map[string]any) (Params, error) {
	var r struct {
		Source     *int64 `mapstructure:"source"`
		ArgMapping []struct {
			Path []string `mapstructure:"path"`
			Node *int64   `mapstructure:"node"`
		} `mapstructure:"argMapping"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	p := &EventParams{}
	if r.Source != nil {
		id, err := toID("source", *r.Source)
		if err != nil {
			return nil, err
		}
		p.Source, p.HasSource = id, true
	}
	for i, m := range r.ArgMapping {
		if len(m.Path) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "event node: argMapping[%d] has an empty path", i)
		}
		id, err := requireID(fmt.Sprintf("argMapping[%d].node", i), m.Node)
		if err != nil {
			return nil, err
		}
		p.Mapping = append(p.Mapping, EventMapping{Path: m.Path, Node: id})
	}
	return p, nil
}

func parseBezier(raw map[string]any) (Params, error) {
	var r struct {
		Input *int64   `mapstructure:"input"`
		MX1   *float64 `mapstructure:"mX1"`
		MY1   *float64 `mapstructure:"mY1"`
		MX2   *float64 `mapstructure:"mX2"`
		MY2   *float64 `mapstructure:"mY2"`
	}
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	input, err := requireID("input", r.Input)
	if err != nil {
		return nil, err
	}
	if r.MX1 == nil || r.MY1 == nil || r.MX2 == nil || r.MY2 == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "bezier node requires mX1, mY1, mX2 and mY2")
	}
	if *r.MX1 < 0 || *r.MX1 > 1 || *r.MX2 < 0 || *r.MX2 > 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "bezier node: x control points must lie in [0, 1]")
	}
	return &BezierParams{
		Input: input,
		X1:    *r.MX1, Y1: *r.MY1, X2: *r.MX2, Y2: *r.MY2,
		curve: newUnitBezier(*r.MX1, *r.MY1, *r.MX2, *r.MY2),
	}, nil
}

// decode runs mapstructure with unknown keys rejected and weak scalar typing,
// so TOML int64, YAML int and JSON float64 numbers all decode alike.
func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       rejectFractional,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func requireID(field string, v *int64) (ID, error) {
	if v == nil {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "missing required node reference %q", field)
	}
	return toID(field, *v)
}

func toID(field string, v int64) (ID, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "%s: node id %d out of range", field, v)
	}
	return ID(v), nil
}

func toIDs(field string, vs []int64) ([]ID, error) {
	ids := make([]ID, len(vs))
	for i, v := range vs {
		id, err := toID(fmt.Sprintf("%s[%d]", field, i), v)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// rejectFractional stops weak decoding from truncating a non-integral float
// into an integer field. JSON delivers every number as float64, so node ids
// arriving over the wire pass through here.
func rejectFractional(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch x := data.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	default:
		return data, nil
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	return data, nil
}
