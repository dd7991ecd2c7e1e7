package graph

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// Pass runs one evaluation pass. It collects the sinks reachable from every
// node updated since the previous pass, advances the generation, pulls each
// sink and returns what the pass produced. It returns nil when nothing was
// updated.
func (g *Graph) Pass() *Outbox {
	if len(g.updated) == 0 {
		return nil
	}
	roots := g.dirtyRoots()
	g.updated = nil
	g.generation++
	g.stats.Passes++
	g.stats.DirtyRoots += uint64(len(roots))

	g.out = &Outbox{Generation: g.generation, Roots: roots}
	defer func() { g.out = nil }()
	for _, id := range roots {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		v := g.value(n)
		switch n.Kind {
		case node.KindProps:
			g.dispatchProps(n, v)
		case node.KindEvent:
			g.dispatchEvent(n, v)
		}
	}
	return g.out
}

// dirtyRoots walks consumer edges from every updated node, each node at most
// once, and returns the sink nodes reached in discovery order.
func (g *Graph) dirtyRoots() []node.ID {
	var roots []node.ID
	seen := make(map[node.ID]bool)
	for _, start := range g.updated {
		stack := []node.ID{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[id] {
				continue
			}
			seen[id] = true
			n, ok := g.nodes[id]
			if !ok {
				continue
			}
			if n.Kind.IsSink() {
				roots = append(roots, id)
			}
			// push in reverse so the lowest id is visited first
			for i := len(n.consumers) - 1; i >= 0; i-- {
				if !seen[n.consumers[i]] {
					stack = append(stack, n.consumers[i])
				}
			}
		}
	}
	return roots
}

// Value returns the value of id in the current generation, evaluating it if
// its cache is stale. A missing node yields an invalid value.
func (g *Graph) Value(id node.ID) value.Value {
	n, ok := g.nodes[id]
	if !ok {
		return value.Invalidf("node %d does not exist", id)
	}
	return g.value(n)
}

// Read evaluates id outside a pass. Values memoized by the last pass are
// reused; nodes the pass did not reach are evaluated now, and any calls or
// debug lines they produce are collected in the returned outbox.
func (g *Graph) Read(id node.ID) (value.Value, *Outbox) {
	if g.out != nil {
		return g.Value(id), nil
	}
	g.out = &Outbox{Generation: g.generation}
	defer func() { g.out = nil }()
	v := g.Value(id)
	return v, g.out
}

func (g *Graph) value(n *Node) value.Value {
	if n.cachedGen == g.generation && g.generation != 0 {
		return n.cached
	}
	v := g.evaluate(n)
	n.cached, n.cachedGen = v, g.generation
	g.stats.Evaluations++
	return v
}

func (g *Graph) valueOf(id node.ID) value.Value {
	n, ok := g.nodes[id]
	if !ok {
		return value.Invalidf("node %d does not exist", id)
	}
	return g.value(n)
}

func (g *Graph) evaluate(n *Node) value.Value {
	switch p := n.Params.(type) {
	case *node.ValueParams:
		return n.stored
	case *node.ConstParams:
		return value.Number(p.Value)
	case *node.OpParams:
		return g.evalOp(p)
	case *node.InterpolateParams:
		x, bad, ok := g.number(p.Input, "interpolate")
		if !ok {
			return bad
		}
		return value.Number(p.At(x))
	case *node.BezierParams:
		x, bad, ok := g.number(p.Input, "bezier")
		if !ok {
			return bad
		}
		return value.Number(p.Ease(x))
	case *node.TransformParams:
		return g.evalTransform(p)
	case *node.StyleParams:
		return value.Map(g.evalMap(p.Style))
	case *node.PropsParams:
		return value.Map(flattenProps(g.evalMap(p.Props)))
	case *node.ClockParams:
		return value.Number(g.frameTimeMs)
	case *node.ClockOpParams:
		return g.evalClockOp(p)
	case *node.SetParams:
		return g.evalSet(p)
	case *node.EventParams:
		if !p.HasSource {
			return value.Unset()
		}
		return g.valueOf(p.Source)
	case *node.BlockParams:
		var last value.Value
		for _, id := range p.Block {
			last = g.valueOf(id)
		}
		return last
	case *node.CondParams:
		c := g.valueOf(p.Cond)
		switch {
		case c.IsInvalid():
			return c
		case c.Truthy():
			return g.valueOf(p.If)
		case p.HasElse:
			return g.valueOf(p.Else)
		default:
			return value.Unset()
		}
	case *node.AlwaysParams:
		return g.valueOf(p.What)
	case *node.ConcatParams:
		var b strings.Builder
		for _, id := range p.Input {
			v := g.valueOf(id)
			if v.IsInvalid() {
				return v
			}
			b.WriteString(v.String())
		}
		return value.String(b.String())
	case *node.DebugParams:
		v := g.valueOf(p.Value)
		if g.out != nil {
			g.out.Debug = append(g.out.Debug, DebugLine{Node: n.ID, Message: p.Message, Value: v})
		}
		return v
	case *node.CallParams:
		args := make([]value.Value, len(p.Input))
		for i, id := range p.Input {
			args[i] = g.valueOf(id)
		}
		if g.out != nil {
			g.out.Calls = append(g.out.Calls, CallEmit{Node: n.ID, Args: args})
		}
		return value.Number(0)
	}
	return value.Invalidf("%s nodes cannot be evaluated", n.Kind)
}

// number evaluates id and requires a number. On failure it returns the value
// to propagate: the input itself when invalid, a type mismatch otherwise.
func (g *Graph) number(id node.ID, who string) (float64, value.Value, bool) {
	v := g.valueOf(id)
	if v.IsInvalid() {
		return 0, v, false
	}
	f, ok := v.Float()
	if !ok {
		return 0, value.Invalidf("%s: input %d is %s, want number", who, id, v.Kind()), false
	}
	return f, value.Value{}, true
}

func (g *Graph) evalOp(p *node.OpParams) value.Value {
	switch p.Op {
	case node.OpAnd:
		var v value.Value
		for _, id := range p.Input {
			if v = g.valueOf(id); !v.Truthy() {
				return v
			}
		}
		return v
	case node.OpOr:
		var v value.Value
		for _, id := range p.Input {
			if v = g.valueOf(id); v.Truthy() {
				return v
			}
		}
		return v
	}
	args := make([]value.Value, len(p.Input))
	for i, id := range p.Input {
		args[i] = g.valueOf(id)
	}
	return p.Op.Apply(args)
}

func (g *Graph) evalTransform(p *node.TransformParams) value.Value {
	operands := make([]float64, len(p.Steps))
	for i, s := range p.Steps {
		if !s.HasNode {
			operands[i] = s.Value
			continue
		}
		x, bad, ok := g.number(s.Node, "transform "+s.Property.String())
		if !ok {
			return bad
		}
		operands[i] = x
	}
	return value.Matrix(node.Compose(p.Steps, operands))
}

func (g *Graph) evalMap(children map[string]node.ID) value.Props {
	out := make(value.Props, len(children))
	for _, name := range slices.Sorted(maps.Keys(children)) {
		out[name] = g.valueOf(children[name])
	}
	return out
}

func (g *Graph) evalClockOp(p *node.ClockOpParams) value.Value {
	c, ok := g.nodes[p.Clock]
	if !ok || c.clock == nil {
		return value.Invalidf("node %d is not a clock", p.Clock)
	}
	switch p.Op {
	case node.KindClockStart:
		g.startClock(c)
	case node.KindClockStop:
		g.stopClock(c)
	case node.KindClockTest:
		return value.Bool(c.clock.running)
	}
	return value.Number(0)
}

// evalSet writes the source value into the target value node. The write is
// visible to readers later in this generation and marks the target updated
// for the next pass. Invalid values are not written.
func (g *Graph) evalSet(p *node.SetParams) value.Value {
	v := g.valueOf(p.Value)
	if v.IsInvalid() {
		return v
	}
	target, ok := g.nodes[p.What]
	if !ok {
		return value.Invalidf("node %d does not exist", p.What)
	}
	target.stored = v
	target.cached, target.cachedGen = v, g.generation
	g.markUpdated(target.ID)
	return v
}
