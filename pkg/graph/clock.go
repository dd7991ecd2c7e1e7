package graph

import "github.com/matzehuels/kinetic/pkg/node"

type clockState struct {
	running bool
}

type frameCallback struct {
	owner node.ID
	fn    func()
}

// SetFrameTime records the timestamp of the frame being processed. Clock
// nodes evaluate to it in milliseconds.
func (g *Graph) SetFrameTime(timestampNs int64) {
	g.frameTimeMs = float64(timestampNs) / 1e6
}

// FrameTimeMs returns the current frame timestamp in milliseconds.
func (g *Graph) FrameTimeMs() float64 { return g.frameTimeMs }

// PendingCallbacks returns the number of frame callbacks waiting for the next
// frame.
func (g *Graph) PendingCallbacks() int { return len(g.callbacks) }

// RunFrameCallbacks invokes the registered frame callbacks. The list is
// swapped out first; callbacks registered meanwhile run on the next frame.
func (g *Graph) RunFrameCallbacks() {
	if len(g.callbacks) == 0 {
		return
	}
	pending := g.callbacks
	g.callbacks = nil
	for _, cb := range pending {
		cb.fn()
	}
}

func (g *Graph) postFrameCallback(owner node.ID, fn func()) {
	g.callbacks = append(g.callbacks, frameCallback{owner: owner, fn: fn})
}

func (g *Graph) removeFrameCallbacks(owner node.ID) {
	kept := g.callbacks[:0]
	for _, cb := range g.callbacks {
		if cb.owner != owner {
			kept = append(kept, cb)
		}
	}
	g.callbacks = kept
}

func (g *Graph) startClock(n *Node) {
	if n.clock.running {
		return
	}
	n.clock.running = true
	g.postFrameCallback(n.ID, g.clockTick(n))
}

func (g *Graph) stopClock(n *Node) {
	if !n.clock.running {
		return
	}
	n.clock.running = false
	g.removeFrameCallbacks(n.ID)
}

// clockTick returns the frame callback of a running clock: it marks the
// clock updated and registers itself for the following frame.
func (g *Graph) clockTick(n *Node) func() {
	var tick func()
	tick = func() {
		if !n.clock.running {
			return
		}
		g.markUpdated(n.ID)
		g.postFrameCallback(n.ID, tick)
	}
	return tick
}

// ClockRunning reports whether the clock node id is running.
func (g *Graph) ClockRunning(id node.ID) bool {
	n, ok := g.nodes[id]
	return ok && n.clock != nil && n.clock.running
}
