package graph

import (
	"slices"

	"github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// EventKey identifies an event attachment point on a view.
type EventKey struct {
	View node.ViewID
	Name string
}

// Node is a registered node. Its fields are owned by the graph.
type Node struct {
	ID     node.ID
	Kind   node.Kind
	Params node.Params

	consumers    []node.ID            // sorted
	producers    map[node.ID]struct{} // nodes holding this one in their consumers
	referencedBy map[node.ID]struct{} // nodes whose params name this one

	cached    value.Value
	cachedGen uint64

	stored  value.Value // value nodes
	clock   *clockState
	view    node.ViewID
	hasView bool
}

// Consumers returns the ids of nodes that are notified when this node changes.
func (n *Node) Consumers() []node.ID { return slices.Clone(n.consumers) }

// Cached returns the last evaluated value and the generation it was computed in.
func (n *Node) Cached() (value.Value, uint64) { return n.cached, n.cachedGen }

// View returns the view a props node is attached to.
func (n *Node) View() (node.ViewID, bool) { return n.view, n.hasView }

// Stats counts graph activity since creation.
type Stats struct {
	Passes      uint64
	Evaluations uint64
	DirtyRoots  uint64
}

// Graph is the node registry plus the per-pass evaluation state.
type Graph struct {
	nodes  map[node.ID]*Node
	views  map[node.ViewID]node.ID
	events map[EventKey]node.ID

	native map[string]bool
	ui     map[string]bool

	generation  uint64
	frameTimeMs float64
	updated     []node.ID
	callbacks   []frameCallback

	out   *Outbox
	stats Stats
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[node.ID]*Node),
		views:  make(map[node.ViewID]node.ID),
		events: make(map[EventKey]node.ID),
		native: make(map[string]bool),
		ui:     make(map[string]bool),
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id node.ID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// IDs returns every registered id in ascending order.
func (g *Graph) IDs() []node.ID {
	ids := make([]node.ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Generation returns the generation of the most recent pass.
func (g *Graph) Generation() uint64 { return g.generation }

// Stats returns activity counters.
func (g *Graph) Stats() Stats { return g.stats }

// Create registers a node. Every id the params reference must already exist.
// The new node becomes a consumer of each of its parents and is marked
// updated.
func (g *Graph) Create(id node.ID, kind node.Kind, raw map[string]any) error {
	if _, ok := g.nodes[id]; ok {
		return errors.New(errors.ErrCodeDuplicateID, "node %d already exists", id)
	}
	p, err := node.Parse(kind, raw)
	if err != nil {
		return err
	}
	for _, ref := range p.References() {
		if _, ok := g.nodes[ref]; !ok {
			return errors.New(errors.ErrCodeUnknownID, "node %d references unknown node %d", id, ref)
		}
	}
	if err := g.checkReferenceKinds(id, p); err != nil {
		return err
	}

	n := &Node{
		ID:           id,
		Kind:         kind,
		Params:       p,
		producers:    make(map[node.ID]struct{}),
		referencedBy: make(map[node.ID]struct{}),
	}
	switch p := p.(type) {
	case *node.ValueParams:
		n.stored = p.Initial
	case *node.ClockParams:
		n.clock = &clockState{}
	}
	g.nodes[id] = n

	for _, ref := range p.References() {
		g.nodes[ref].referencedBy[id] = struct{}{}
	}
	for _, parent := range p.Parents() {
		g.link(g.nodes[parent], n)
	}
	g.markUpdated(id)
	return nil
}

func (g *Graph) checkReferenceKinds(id node.ID, p node.Params) error {
	want := func(ref node.ID, kind node.Kind, role string) error {
		if k := g.nodes[ref].Kind; k != kind {
			return errors.New(errors.ErrCodeInvalidConfig, "node %d: %s %d is a %s node, want %s", id, role, ref, k, kind)
		}
		return nil
	}
	switch p := p.(type) {
	case *node.SetParams:
		return want(p.What, node.KindValue, "set target")
	case *node.ClockOpParams:
		return want(p.Clock, node.KindClock, "clock")
	case *node.EventParams:
		for _, m := range p.Mapping {
			if err := want(m.Node, node.KindValue, "argMapping target"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Drop removes a node. It fails with NODE_IN_USE while the node has
// consumers, is referenced by another node, or is attached to a view or an
// event. Dropping a running clock stops it.
func (g *Graph) Drop(id node.ID) error {
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeUnknownID, "node %d does not exist", id)
	}
	if len(n.consumers) > 0 {
		return errors.New(errors.ErrCodeNodeInUse, "node %d still has %d consumer(s)", id, len(n.consumers))
	}
	if len(n.referencedBy) > 0 {
		return errors.New(errors.ErrCodeNodeInUse, "node %d is still referenced by %d node(s)", id, len(n.referencedBy))
	}
	if n.hasView {
		return errors.New(errors.ErrCodeNodeInUse, "node %d is attached to view %d", id, n.view)
	}
	for key, nid := range g.events {
		if nid == id {
			return errors.New(errors.ErrCodeNodeInUse, "node %d handles event %q on view %d", id, key.Name, key.View)
		}
	}

	if n.clock != nil {
		g.stopClock(n)
	}
	for pid := range n.producers {
		g.unlink(g.nodes[pid], n)
	}
	for _, ref := range n.Params.References() {
		if r, ok := g.nodes[ref]; ok {
			delete(r.referencedBy, id)
		}
	}
	delete(g.nodes, id)
	return nil
}

// Connect adds a consumer edge from parent to child and marks child updated.
// Connecting an existing edge is a no-op. The edge is rejected if parent is
// reachable from child.
func (g *Graph) Connect(parent, child node.ID) error {
	p, c, err := g.pair(parent, child)
	if err != nil {
		return err
	}
	if _, ok := c.producers[parent]; ok {
		return nil
	}
	if g.reaches(child, parent) {
		return errors.New(errors.ErrCodeCycleDetected, "edge %d -> %d would create a cycle", parent, child)
	}
	g.link(p, c)
	g.markUpdated(child)
	return nil
}

// Disconnect removes the consumer edge from parent to child. Removing an edge
// that does not exist is a no-op.
func (g *Graph) Disconnect(parent, child node.ID) error {
	p, c, err := g.pair(parent, child)
	if err != nil {
		return err
	}
	g.unlink(p, c)
	return nil
}

func (g *Graph) pair(parent, child node.ID) (*Node, *Node, error) {
	p, ok := g.nodes[parent]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeUnknownID, "node %d does not exist", parent)
	}
	c, ok := g.nodes[child]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeUnknownID, "node %d does not exist", child)
	}
	return p, c, nil
}

func (g *Graph) link(parent, child *Node) {
	if i, found := slices.BinarySearch(parent.consumers, child.ID); !found {
		parent.consumers = slices.Insert(parent.consumers, i, child.ID)
	}
	child.producers[parent.ID] = struct{}{}
}

func (g *Graph) unlink(parent, child *Node) {
	if i, found := slices.BinarySearch(parent.consumers, child.ID); found {
		parent.consumers = slices.Delete(parent.consumers, i, i+1)
	}
	delete(child.producers, parent.ID)
}

// reaches reports whether target is reachable from start over consumer edges.
// start == target counts as reachable.
func (g *Graph) reaches(start, target node.ID) bool {
	seen := map[node.ID]bool{}
	stack := []node.ID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if n, ok := g.nodes[id]; ok {
			stack = append(stack, n.consumers...)
		}
	}
	return false
}

// ConnectToView attaches a props node to a view. A props node may be attached
// to one view at a time and a view may be bound to one props node.
func (g *Graph) ConnectToView(id node.ID, view node.ViewID) error {
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeUnknownID, "node %d does not exist", id)
	}
	if !n.Kind.CanAttachView() {
		return errors.New(errors.ErrCodeInvalidConfig, "node %d is a %s node, only props nodes attach to views", id, n.Kind)
	}
	if n.hasView {
		if n.view == view {
			return nil
		}
		return errors.New(errors.ErrCodeInvalidConfig, "node %d is already attached to view %d", id, n.view)
	}
	if other, bound := g.views[view]; bound {
		return errors.New(errors.ErrCodeInvalidConfig, "view %d is already bound to node %d", view, other)
	}
	n.view, n.hasView = view, true
	g.views[view] = id
	g.markUpdated(id)
	return nil
}

// DisconnectFromView detaches whatever props node is bound to view.
func (g *Graph) DisconnectFromView(view node.ViewID) error {
	id, ok := g.views[view]
	if !ok {
		return nil
	}
	if n, ok := g.nodes[id]; ok {
		n.hasView = false
		n.view = 0
	}
	delete(g.views, view)
	return nil
}

// AttachEvent binds an event node to the named event of a view.
func (g *Graph) AttachEvent(view node.ViewID, name string, id node.ID) error {
	if err := errors.ValidateEventName(name); err != nil {
		return err
	}
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeUnknownID, "node %d does not exist", id)
	}
	if n.Kind != node.KindEvent {
		return errors.New(errors.ErrCodeInvalidConfig, "node %d is a %s node, only event nodes handle events", id, n.Kind)
	}
	key := EventKey{View: view, Name: name}
	if other, bound := g.events[key]; bound {
		if other == id {
			return nil
		}
		return errors.New(errors.ErrCodeInvalidConfig, "event %q on view %d is already handled by node %d", name, view, other)
	}
	g.events[key] = id
	g.markUpdated(id)
	return nil
}

// DetachEvent removes the handler bound to the named event of a view.
func (g *Graph) DetachEvent(view node.ViewID, name string) error {
	delete(g.events, EventKey{View: view, Name: name})
	return nil
}

// ConfigureProps replaces the attribute partition used by props sinks.
// UI names are emitted as a props change after the pass; every other name,
// listed as native or not, is applied to the view synchronously within the
// frame. Props nodes attached to a view are marked updated so the next pass
// re-dispatches them under the new partition.
func (g *Graph) ConfigureProps(native, ui []string) error {
	for _, name := range slices.Concat(native, ui) {
		if err := errors.ValidateAttributeName(name); err != nil {
			return err
		}
	}
	g.native = make(map[string]bool, len(native))
	for _, name := range native {
		g.native[name] = true
	}
	g.ui = make(map[string]bool, len(ui))
	for _, name := range ui {
		g.ui[name] = true
	}
	for _, id := range g.IDs() {
		if n := g.nodes[id]; n.Kind == node.KindProps && n.hasView {
			g.markUpdated(id)
		}
	}
	return nil
}

// SetValue stores v in a value node and marks it updated.
func (g *Graph) SetValue(id node.ID, v value.Value) error {
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeUnknownID, "node %d does not exist", id)
	}
	if n.Kind != node.KindValue {
		return errors.New(errors.ErrCodeInvalidConfig, "node %d is a %s node, only value nodes can be set", id, n.Kind)
	}
	n.stored = v
	g.markUpdated(id)
	return nil
}

func (g *Graph) markUpdated(id node.ID) {
	g.updated = append(g.updated, id)
}

// HasUpdates reports whether a pass would find any updated node.
func (g *Graph) HasUpdates() bool { return len(g.updated) > 0 }
