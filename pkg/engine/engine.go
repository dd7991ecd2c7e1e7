// Package engine drives an animation graph frame by frame.
//
// An [Engine] owns a [graph.Graph] and a [bridge.Queue]. The scripting side
// enqueues command batches from any goroutine; the host calls [Engine.Tick]
// once per display frame on the rendering goroutine. Each tick:
//
//  1. drains the queue and applies the commands in order, rejecting bad
//     commands individually while the rest of the batch proceeds;
//  2. runs the frame callbacks of running clocks;
//  3. runs an evaluation pass;
//  4. applies native view attributes synchronously, then delivers the
//     remaining output (rejections, props changes, events, calls, getValue
//     results) to the [bridge.Host];
//  5. publishes a read-only [graph.Snapshot] for other goroutines.
//
// A panic during a pass is recovered and logged; the next tick runs normally.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/graph"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/observability"
	"github.com/matzehuels/kinetic/pkg/value"
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Host   bridge.Host
	Queue  *bridge.Queue
	Logger *log.Logger
}

// Engine runs the frame loop over one graph. Tick and Apply must be called
// from a single goroutine; Queue, Snapshot and NeedsFrame are safe from any.
type Engine struct {
	Logger *log.Logger

	graph *graph.Graph
	queue *bridge.Queue
	host  bridge.Host

	gets     []getRequest
	rejected []rejection
	frames   uint64

	snapshot   atomic.Pointer[graph.Snapshot]
	needsFrame atomic.Bool
}

type getRequest struct {
	node    node.ID
	request uint64
}

type rejection struct {
	cmd bridge.Command
	err error
}

// New returns an engine over an empty graph.
func New(opts Options) *Engine {
	if opts.Host == nil {
		opts.Host = bridge.NopHost{}
	}
	if opts.Queue == nil {
		opts.Queue = bridge.NewQueue()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	e := &Engine{
		Logger: opts.Logger,
		graph:  graph.New(),
		queue:  opts.Queue,
		host:   opts.Host,
	}
	e.snapshot.Store(e.graph.Snapshot())
	return e
}

// Queue returns the command queue feeding this engine.
func (e *Engine) Queue() *bridge.Queue { return e.queue }

// Graph returns the underlying graph. It must only be used on the rendering
// goroutine.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Snapshot returns the state published after the most recent tick.
func (e *Engine) Snapshot() *graph.Snapshot { return e.snapshot.Load() }

// NeedsFrame reports whether the host should keep delivering ticks: clocks
// are running, nodes are waiting to be evaluated, or commands are queued.
func (e *Engine) NeedsFrame() bool {
	return e.needsFrame.Load() || e.queue.Len() > 0
}

// Frame summarizes one tick.
type Frame struct {
	Index       uint64
	TimestampNs int64
	Generation  uint64
	Applied     int
	Rejected    int
	Err         error // aggregated command rejections, or a recovered panic
	Outbox      *graph.Outbox
	Duration    time.Duration
}

// Tick processes one display frame at timestampNs.
func (e *Engine) Tick(timestampNs int64) Frame {
	return e.TickContext(context.Background(), timestampNs)
}

// TickContext is Tick with a context for observability hooks.
func (e *Engine) TickContext(ctx context.Context, timestampNs int64) Frame {
	start := time.Now()
	e.frames++
	f := Frame{Index: e.frames, TimestampNs: timestampNs}

	cmds := e.queue.Drain()
	if len(cmds) > 0 {
		err := e.ApplyBatch(ctx, cmds)
		f.Applied = len(cmds)
		if merr, ok := err.(*multierror.Error); ok {
			f.Rejected = len(merr.Errors)
		}
		f.Err = err
	}

	e.graph.SetFrameTime(timestampNs)
	e.graph.RunFrameCallbacks()

	out, err := e.pass(ctx)
	if err != nil {
		f.Err = multierror.Append(f.Err, err)
	}
	f.Outbox = out
	f.Generation = e.graph.Generation()

	e.flush(ctx, out)

	e.snapshot.Store(e.graph.Snapshot())
	e.needsFrame.Store(e.graph.PendingCallbacks() > 0 || e.graph.HasUpdates() || len(e.gets) > 0)
	f.Duration = time.Since(start)
	return f
}

// pass runs one evaluation pass, recovering from panics.
func (e *Engine) pass(ctx context.Context) (out *graph.Outbox, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("evaluation pass panicked", "panic", r, "generation", e.graph.Generation())
			e.Logger.Debug(string(debug.Stack()))
			out = nil
			err = errors.New(errors.ErrCodeInternal, "evaluation pass panicked: %v", r)
		}
	}()
	start := time.Now()
	out = e.graph.Pass()
	if out != nil {
		observability.Engine().OnPassComplete(ctx, out.Generation, len(out.Roots), time.Since(start))
		e.Logger.Debug("pass complete", "generation", out.Generation, "roots", len(out.Roots))
	}
	return out, nil
}

// flush delivers the output of a pass to the host. Native attributes go
// first; everything else follows in production order.
func (e *Engine) flush(ctx context.Context, out *graph.Outbox) {
	if out != nil {
		for _, u := range out.Native {
			e.host.ApplyViewAttributes(u.View, u.Attrs)
		}
	}

	for _, r := range e.rejected {
		e.host.RejectCommand(r.cmd, r.err)
	}
	e.rejected = nil

	if out != nil {
		for _, u := range out.PropsChanges {
			e.host.EmitPropsChange(u.View, u.Attrs)
		}
		for _, ev := range out.Events {
			e.host.EmitEvent(ev.View, ev.Name, ev.Payload)
		}
		for _, c := range out.Calls {
			e.host.EmitCall(c.Node, c.Args)
		}
		for _, d := range out.Debug {
			e.Logger.Debug(d.Message, "node", d.Node, "value", d.Value)
		}
		for _, d := range out.Diagnostics {
			observability.Engine().OnDiagnostic(ctx, uint32(d.Node), d.Attr, d.Reason)
			e.Logger.Warn("invalid value reached sink", "node", d.Node, "attr", d.Attr, "reason", d.Reason)
		}
	}

	for _, g := range e.gets {
		v := value.Number(0)
		if _, ok := e.graph.Node(g.node); ok {
			var side *graph.Outbox
			v, side = e.graph.Read(g.node)
			if side != nil {
				for _, c := range side.Calls {
					e.host.EmitCall(c.Node, c.Args)
				}
				for _, d := range side.Debug {
					e.Logger.Debug(d.Message, "node", d.Node, "value", d.Value)
				}
			}
		}
		e.host.ResolveGetValue(g.request, v)
	}
	e.gets = nil
}

// ApplyBatch applies cmds in order. A rejected command leaves the graph
// unchanged and is reported to the host after the next pass; the rest of the
// batch proceeds. The returned error aggregates every rejection.
func (e *Engine) ApplyBatch(ctx context.Context, cmds []bridge.Command) error {
	var result *multierror.Error
	for _, cmd := range cmds {
		if err := e.Apply(cmd); err != nil {
			err = fmt.Errorf("%s: %w", cmd, err)
			result = multierror.Append(result, err)
			e.rejected = append(e.rejected, rejection{cmd: cmd, err: err})
			observability.Engine().OnCommandRejected(ctx, cmd.Op.String(), err)
			logf := e.Logger.Error
			if errors.IsStructural(err) {
				logf = e.Logger.Warn
			}
			logf("command rejected", "command", cmd.String(), "code", errors.GetCode(err), "err", errors.UserMessage(err))
		}
	}
	rejected := 0
	if result != nil {
		rejected = len(result.Errors)
	}
	observability.Engine().OnBatchApplied(ctx, len(cmds), rejected)
	e.Logger.Debug("batch applied", "commands", len(cmds), "rejected", rejected)
	return result.ErrorOrNil()
}

// Apply applies a single command to the graph.
func (e *Engine) Apply(cmd bridge.Command) error {
	g := e.graph
	switch cmd.Op {
	case bridge.OpCreate:
		kind, ok := node.ParseKind(cmd.Kind)
		if !ok {
			return errors.New(errors.ErrCodeInvalidConfig, "unknown node kind %q", cmd.Kind)
		}
		return g.Create(cmd.Node, kind, cmd.Params)
	case bridge.OpDrop:
		return g.Drop(cmd.Node)
	case bridge.OpConnect:
		return g.Connect(cmd.Parent, cmd.Child)
	case bridge.OpDisconnect:
		return g.Disconnect(cmd.Parent, cmd.Child)
	case bridge.OpConnectToView:
		return g.ConnectToView(cmd.Node, cmd.View)
	case bridge.OpDisconnectFromView:
		return g.DisconnectFromView(cmd.View)
	case bridge.OpAttachEvent:
		return g.AttachEvent(cmd.View, cmd.Event, cmd.Node)
	case bridge.OpDetachEvent:
		return g.DetachEvent(cmd.View, cmd.Event)
	case bridge.OpConfigureProps:
		return g.ConfigureProps(cmd.Native, cmd.UI)
	case bridge.OpSetValue:
		v, ok := value.FromNative(cmd.Value)
		if !ok {
			return errors.New(errors.ErrCodeInvalidConfig, "unsupported value type %T", cmd.Value)
		}
		return g.SetValue(cmd.Node, v)
	case bridge.OpGetValue:
		e.gets = append(e.gets, getRequest{node: cmd.Node, request: cmd.Request})
		return nil
	case bridge.OpDispatchEvent:
		g.DispatchEvent(cmd.View, cmd.Event, cmd.Payload)
		return nil
	}
	return errors.New(errors.ErrCodeUnsupported, "unsupported command %s", cmd.Op)
}
