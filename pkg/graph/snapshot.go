package graph

import (
	"cmp"
	"maps"
	"slices"

	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// NodeInfo is a read-only copy of a node's state.
type NodeInfo struct {
	ID         node.ID      `json:"id"`
	Kind       string       `json:"kind"`
	Parents    []node.ID    `json:"parents,omitempty"`
	Consumers  []node.ID    `json:"consumers,omitempty"`
	Value      value.Value  `json:"value"`
	Generation uint64       `json:"generation"`
	View       *node.ViewID `json:"view,omitempty"`
	Running    bool         `json:"running,omitempty"`
}

// EventInfo is a read-only copy of an event attachment.
type EventInfo struct {
	View node.ViewID `json:"view"`
	Name string      `json:"name"`
	Node node.ID     `json:"node"`
}

// Snapshot is a deep copy of the graph, safe to hand to other goroutines.
type Snapshot struct {
	Generation  uint64      `json:"generation"`
	FrameTimeMs float64     `json:"frameTimeMs"`
	Nodes       []NodeInfo  `json:"nodes"`
	Events      []EventInfo `json:"events,omitempty"`
	Native      []string    `json:"native,omitempty"`
	UI          []string    `json:"ui,omitempty"`
	Stats       Stats       `json:"stats"`
}

// Node returns the snapshot entry for id.
func (s *Snapshot) Node(id node.ID) (NodeInfo, bool) {
	i, found := slices.BinarySearchFunc(s.Nodes, id, func(n NodeInfo, id node.ID) int {
		return cmp.Compare(n.ID, id)
	})
	if !found {
		return NodeInfo{}, false
	}
	return s.Nodes[i], true
}

// Snapshot copies the current state of the graph. Cached values are reported
// as they are; nothing is evaluated.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		Generation:  g.generation,
		FrameTimeMs: g.frameTimeMs,
		Nodes:       make([]NodeInfo, 0, len(g.nodes)),
		Native:      slices.Sorted(maps.Keys(g.native)),
		UI:          slices.Sorted(maps.Keys(g.ui)),
		Stats:       g.stats,
	}
	for _, id := range g.IDs() {
		n := g.nodes[id]
		info := NodeInfo{
			ID:         n.ID,
			Kind:       n.Kind.String(),
			Parents:    slices.Clone(n.Params.Parents()),
			Consumers:  slices.Clone(n.consumers),
			Value:      n.cached,
			Generation: n.cachedGen,
		}
		if n.Kind == node.KindValue {
			info.Value = n.stored
		}
		if n.hasView {
			view := n.view
			info.View = &view
		}
		if n.clock != nil {
			info.Running = n.clock.running
		}
		s.Nodes = append(s.Nodes, info)
	}
	for key, id := range g.events {
		s.Events = append(s.Events, EventInfo{View: key.View, Name: key.Name, Node: id})
	}
	slices.SortFunc(s.Events, func(a, b EventInfo) int {
		return compareEventKeys(EventKey{a.View, a.Name}, EventKey{b.View, b.Name})
	})
	return s
}
