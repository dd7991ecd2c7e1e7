// Package node defines the closed set of animation node kinds, their
// kind-specific parameters, and the pure math the evaluator applies to them.
//
// Nodes are described by a [Kind] and a raw parameter map (as decoded from a
// host command, a scene file or a JSON request). [Parse] validates the map and
// returns typed [Params]. Every node id a node refers to is listed by
// [Params.References]; the subset it reads while evaluating is listed by
// [Params.Parents] and becomes a dependency edge in the graph.
//
// This package holds no graph state. Evaluation lives in package graph, which
// switches over the concrete Params types defined here.
package node

import (
	"fmt"
	"strings"
)

// ID identifies a node. Ids are assigned by the host.
type ID uint32

func (id ID) String() string { return fmt.Sprintf("%d", uint32(id)) }

// ViewID identifies a host view (a native component instance).
type ViewID int64

// Kind enumerates node kinds.
type Kind uint8

const (
	KindValue Kind = iota + 1
	KindConst
	KindOp
	KindInterpolate
	KindTransform
	KindStyle
	KindProps
	KindClock
	KindClockStart
	KindClockStop
	KindClockTest
	KindSet
	KindEvent
	KindBlock
	KindCond
	KindAlways
	KindConcat
	KindBezier
	KindDebug
	KindCall
)

var kindNames = map[Kind]string{
	KindValue:       "value",
	KindConst:       "const",
	KindOp:          "op",
	KindInterpolate: "interpolate",
	KindTransform:   "transform",
	KindStyle:       "style",
	KindProps:       "props",
	KindClock:       "clock",
	KindClockStart:  "clockStart",
	KindClockStop:   "clockStop",
	KindClockTest:   "clockTest",
	KindSet:         "set",
	KindEvent:       "event",
	KindBlock:       "block",
	KindCond:        "cond",
	KindAlways:      "always",
	KindConcat:      "concat",
	KindBezier:      "bezier",
	KindDebug:       "debug",
	KindCall:        "call",
}

// String returns the wire name of the kind ("value", "props", ...).
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a wire name. Matching is case-insensitive.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return 0, false
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindValue; k <= KindCall; k++ {
		out = append(out, k)
	}
	return out
}

// IsSink reports whether nodes of this kind are collected as dirty roots
// when something upstream changes.
func (k Kind) IsSink() bool {
	switch k {
	case KindProps, KindEvent, KindAlways:
		return true
	}
	return false
}

// CanAttachView reports whether nodes of this kind may be connected to a view.
func (k Kind) CanAttachView() bool { return k == KindProps }
