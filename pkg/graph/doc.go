// Package graph holds the node registry of an animation graph and evaluates it.
//
// # Overview
//
// A [Graph] owns every node exclusively; callers refer to nodes by
// [node.ID]. Nodes are created from a kind and a raw parameter map, and every
// node a new node reads from becomes a dependency edge: the new node is
// registered as a consumer of each of its parents. The consumer relation is
// kept acyclic; [Graph.Connect] rejects an edge that would close a cycle.
//
//	g := graph.New()
//	_ = g.Create(1, node.KindValue, map[string]any{"value": 0.5})
//	_ = g.Create(2, node.KindProps, map[string]any{"props": map[string]any{"opacity": 1}})
//	_ = g.ConnectToView(2, 7)
//	out := g.Pass()
//
// # Evaluation
//
// Evaluation is push/pull. When a node's authoritative state changes (a value
// is set, a clock ticks, an edge touching it is created) it is marked updated.
// [Graph.Pass] walks the consumer edges of every updated node, collecting the
// sink nodes (props, event, always) it reaches, then bumps the generation
// counter and pulls each sink. Pulling is memoized per generation, so a node
// shared by several paths is evaluated at most once per pass. Nodes not
// reachable from a dirty sink keep their stale cached value.
//
// Type mismatches never abort a pass. The failing node produces an invalid
// value (see [value.Invalid]) that propagates to whatever consumes it.
//
// # Side Effects
//
// A pass returns an [Outbox] holding what the pass produced for the host:
// view attribute updates split by the native/UI partition set with
// [Graph.ConfigureProps], outbound events, call node invocations, debug lines
// and diagnostics. The graph never calls the host itself.
//
// # Clocks
//
// A running clock keeps a frame callback registered. [Graph.RunFrameCallbacks]
// swaps the callback list out before invoking it, so callbacks registered
// while it runs fire on the next frame. Each clock callback marks the clock
// updated and registers itself again.
//
// A Graph is not safe for concurrent use. It belongs to the rendering
// goroutine; other goroutines observe it through [Graph.Snapshot].
package graph
