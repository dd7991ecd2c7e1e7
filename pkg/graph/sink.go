package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// ViewUpdate is a set of attributes destined for one view.
type ViewUpdate struct {
	View  node.ViewID
	Attrs value.Props
}

// EventEmit is an outbound event produced by an event node.
type EventEmit struct {
	View    node.ViewID
	Name    string
	Payload value.Value
}

// CallEmit is an invocation produced by a call node.
type CallEmit struct {
	Node node.ID
	Args []value.Value
}

// DebugLine is the output of a debug node.
type DebugLine struct {
	Node    node.ID
	Message string
	Value   value.Value
}

// Diagnostic reports an invalid value that reached a sink.
type Diagnostic struct {
	Node   node.ID
	Attr   string
	Reason string
}

// Outbox collects the side effects of one pass, in production order.
type Outbox struct {
	Generation uint64
	Roots      []node.ID

	// Native attribute updates, applied to views synchronously within the frame.
	Native []ViewUpdate
	// UI attribute updates, emitted after the pass.
	PropsChanges []ViewUpdate

	Events      []EventEmit
	Calls       []CallEmit
	Debug       []DebugLine
	Diagnostics []Diagnostic
}

// Empty reports whether the pass produced nothing for the host.
func (o *Outbox) Empty() bool {
	return o == nil || len(o.Native)+len(o.PropsChanges)+len(o.Events)+len(o.Calls)+len(o.Debug)+len(o.Diagnostics) == 0
}

// dispatchProps splits the flattened attributes of a props node by the
// native/UI partition and queues them for its view. Names outside the UI set
// are applied natively. A props node without a view produces nothing, since
// there is no view id to address either channel.
func (g *Graph) dispatchProps(n *Node, v value.Value) {
	if !n.hasView {
		return
	}
	attrs, ok := v.Props()
	if !ok {
		g.out.Diagnostics = append(g.out.Diagnostics, Diagnostic{Node: n.ID, Reason: "props node produced " + v.Kind().String()})
		return
	}
	native := value.Props{}
	ui := value.Props{}
	for _, name := range attrs.Keys() {
		av := attrs[name]
		if av.IsInvalid() {
			g.out.Diagnostics = append(g.out.Diagnostics, Diagnostic{Node: n.ID, Attr: name, Reason: av.Reason()})
		}
		if g.ui[name] {
			ui[name] = av
		} else {
			native[name] = av
		}
	}
	if len(native) > 0 {
		g.out.Native = append(g.out.Native, ViewUpdate{View: n.view, Attrs: native})
	}
	if len(ui) > 0 {
		g.out.PropsChanges = append(g.out.PropsChanges, ViewUpdate{View: n.view, Attrs: ui})
	}
}

// dispatchEvent forwards the payload of an event node to every (view, name)
// it is attached to.
func (g *Graph) dispatchEvent(n *Node, v value.Value) {
	if p := n.Params.(*node.EventParams); !p.HasSource {
		return
	}
	for _, key := range g.eventKeys(n.ID) {
		g.out.Events = append(g.out.Events, EventEmit{View: key.View, Name: key.Name, Payload: v})
	}
}

func (g *Graph) eventKeys(id node.ID) []EventKey {
	var keys []EventKey
	for key, nid := range g.events {
		if nid == id {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, compareEventKeys)
	return keys
}

func compareEventKeys(a, b EventKey) int {
	if c := cmp.Compare(a.View, b.View); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// DispatchEvent delivers an inbound event to the event node attached at
// (view, name). Each argMapping path found in payload is written into its
// value node, which is marked updated. Unknown paths, and events without a
// handler, are ignored.
func (g *Graph) DispatchEvent(view node.ViewID, name string, payload map[string]any) int {
	id, ok := g.events[EventKey{View: view, Name: name}]
	if !ok {
		return 0
	}
	n, ok := g.nodes[id]
	if !ok {
		return 0
	}
	written := 0
	for _, m := range n.Params.(*node.EventParams).Mapping {
		raw, found := lookupPath(payload, m.Path)
		if !found {
			continue
		}
		v, ok := value.FromNative(raw)
		if !ok {
			continue
		}
		target, ok := g.nodes[m.Node]
		if !ok {
			continue
		}
		target.stored = v
		g.markUpdated(target.ID)
		written++
	}
	return written
}

func lookupPath(payload map[string]any, path []string) (any, bool) {
	var cur any = payload
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// flattenProps merges map-valued children (style nodes) into the parent's
// attribute set.
func flattenProps(children value.Props) value.Props {
	out := make(value.Props, len(children))
	for _, name := range children.Keys() {
		v := children[name]
		if inner, ok := v.Props(); ok {
			maps.Copy(out, inner)
			continue
		}
		out[name] = v
	}
	return out
}

// String renders an event key as "view:name".
func (k EventKey) String() string {
	return fmt.Sprintf("%d:%s", k.View, k.Name)
}
