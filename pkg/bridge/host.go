package bridge

import (
	"sync"

	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// Host receives the engine's output.
//
// ApplyViewAttributes is called synchronously within the frame, before any
// other callback of that frame. The remaining methods are called after the
// pass completes, in the order their effects were produced.
type Host interface {
	ApplyViewAttributes(view node.ViewID, attrs value.Props)
	EmitPropsChange(view node.ViewID, attrs value.Props)
	EmitEvent(view node.ViewID, name string, payload value.Value)
	EmitCall(id node.ID, args []value.Value)
	ResolveGetValue(request uint64, v value.Value)
	RejectCommand(cmd Command, err error)
}

// NopHost discards everything.
type NopHost struct{}

func (NopHost) ApplyViewAttributes(node.ViewID, value.Props) {}
func (NopHost) EmitPropsChange(node.ViewID, value.Props)     {}
func (NopHost) EmitEvent(node.ViewID, string, value.Value)   {}
func (NopHost) EmitCall(node.ID, []value.Value)              {}
func (NopHost) ResolveGetValue(uint64, value.Value)          {}
func (NopHost) RejectCommand(Command, error)                 {}

// CallKind identifies a recorded host callback.
type CallKind string

const (
	CallApplyViewAttributes CallKind = "applyViewAttributes"
	CallEmitPropsChange     CallKind = "emitPropsChange"
	CallEmitEvent           CallKind = "emitEvent"
	CallEmitCall            CallKind = "emitCall"
	CallResolveGetValue     CallKind = "resolveGetValue"
	CallRejectCommand       CallKind = "rejectCommand"
)

// Call is one recorded host callback.
type Call struct {
	Kind    CallKind
	View    node.ViewID
	Name    string
	Node    node.ID
	Request uint64
	Attrs   value.Props
	Value   value.Value
	Args    []value.Value
	Command Command
	Err     error
}

// Recorder is a Host that records every callback. It is safe for concurrent
// use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *Recorder) ApplyViewAttributes(view node.ViewID, attrs value.Props) {
	r.record(Call{Kind: CallApplyViewAttributes, View: view, Attrs: attrs.Clone()})
}

func (r *Recorder) EmitPropsChange(view node.ViewID, attrs value.Props) {
	r.record(Call{Kind: CallEmitPropsChange, View: view, Attrs: attrs.Clone()})
}

func (r *Recorder) EmitEvent(view node.ViewID, name string, payload value.Value) {
	r.record(Call{Kind: CallEmitEvent, View: view, Name: name, Value: payload})
}

func (r *Recorder) EmitCall(id node.ID, args []value.Value) {
	r.record(Call{Kind: CallEmitCall, Node: id, Args: args})
}

func (r *Recorder) ResolveGetValue(request uint64, v value.Value) {
	r.record(Call{Kind: CallResolveGetValue, Request: request, Value: v})
}

func (r *Recorder) RejectCommand(cmd Command, err error) {
	r.record(Call{Kind: CallRejectCommand, Command: cmd, Err: err})
}

// Calls returns a copy of the recorded callbacks.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Filter returns the recorded callbacks of one kind.
func (r *Recorder) Filter(kind CallKind) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Reset discards the recorded callbacks.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Tee returns a Host that forwards every callback to each of hosts in order.
// Nil hosts are skipped.
func Tee(hosts ...Host) Host {
	var t tee
	for _, h := range hosts {
		if h != nil {
			t = append(t, h)
		}
	}
	if len(t) == 1 {
		return t[0]
	}
	return t
}

type tee []Host

func (t tee) ApplyViewAttributes(view node.ViewID, attrs value.Props) {
	for _, h := range t {
		h.ApplyViewAttributes(view, attrs)
	}
}

func (t tee) EmitPropsChange(view node.ViewID, attrs value.Props) {
	for _, h := range t {
		h.EmitPropsChange(view, attrs)
	}
}

func (t tee) EmitEvent(view node.ViewID, name string, payload value.Value) {
	for _, h := range t {
		h.EmitEvent(view, name, payload)
	}
}

func (t tee) EmitCall(id node.ID, args []value.Value) {
	for _, h := range t {
		h.EmitCall(id, args)
	}
}

func (t tee) ResolveGetValue(request uint64, v value.Value) {
	for _, h := range t {
		h.ResolveGetValue(request, v)
	}
}

func (t tee) RejectCommand(cmd Command, err error) {
	for _, h := range t {
		h.RejectCommand(cmd, err)
	}
}
