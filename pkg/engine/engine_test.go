package engine

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

func newTestEngine() (*Engine, *bridge.Recorder) {
	rec := bridge.NewRecorder()
	e := New(Options{Host: rec, Logger: log.New(io.Discard)})
	return e, rec
}

func opacityScene() []bridge.Command {
	return []bridge.Command{
		bridge.ConfigureProps([]string{"opacity"}, []string{"label"}),
		bridge.Create(1, node.KindValue, map[string]any{"value": 0}),
		bridge.Create(2, node.KindInterpolate, map[string]any{
			"input": 1, "inputRange": []any{0, 100}, "outputRange": []any{0, 1},
		}),
		bridge.Create(3, node.KindProps, map[string]any{"props": map[string]any{"opacity": 2}}),
		bridge.ConnectToView(3, 7),
		bridge.SetValue(1, 50),
	}
}

func TestTickAppliesNativeAttributes(t *testing.T) {
	e, rec := newTestEngine()
	e.Queue().Enqueue(opacityScene()...)

	f := e.Tick(16_000_000)
	if f.Err != nil {
		t.Fatalf("tick error: %v", f.Err)
	}
	if f.Applied != 6 || f.Rejected != 0 || f.Generation != 1 {
		t.Errorf("frame = %+v", f)
	}

	applied := rec.Filter(bridge.CallApplyViewAttributes)
	want := []bridge.Call{{
		Kind:  bridge.CallApplyViewAttributes,
		View:  7,
		Attrs: value.Props{"opacity": value.Number(0.5)},
	}}
	if diff := cmp.Diff(want, applied, cmp.Comparer(value.Value.Equal)); diff != "" {
		t.Errorf("applyViewAttributes (-want +got):\n%s", diff)
	}

	if snap := e.Snapshot(); snap.Generation != 1 || len(snap.Nodes) != 3 {
		t.Errorf("snapshot generation=%d nodes=%d", snap.Generation, len(snap.Nodes))
	}
}

func TestUnconfiguredSceneAppliesNatively(t *testing.T) {
	e, rec := newTestEngine()
	e.Queue().Enqueue(opacityScene()[1:]...)
	if f := e.Tick(0); f.Err != nil || f.Applied != 5 {
		t.Fatalf("frame = %+v", f)
	}

	want := []bridge.Call{{
		Kind:  bridge.CallApplyViewAttributes,
		View:  7,
		Attrs: value.Props{"opacity": value.Number(0.5)},
	}}
	if diff := cmp.Diff(want, rec.Calls(), cmp.Comparer(value.Value.Equal)); diff != "" {
		t.Errorf("host calls (-want +got):\n%s", diff)
	}
}

func TestGetValueEmitsUnreachedCalls(t *testing.T) {
	e, rec := newTestEngine()
	e.Queue().Enqueue(
		bridge.Create(1, node.KindValue, map[string]any{"value": 2}),
		bridge.Create(2, node.KindCall, map[string]any{"input": []any{1}}),
		bridge.GetValue(2, 3),
	)
	e.Tick(0)

	want := []bridge.Call{
		{Kind: bridge.CallEmitCall, Node: 2, Args: []value.Value{value.Number(2)}},
		{Kind: bridge.CallResolveGetValue, Request: 3, Value: value.Number(0)},
	}
	if diff := cmp.Diff(want, rec.Calls(), cmp.Comparer(value.Value.Equal)); diff != "" {
		t.Errorf("host calls (-want +got):\n%s", diff)
	}
}

func TestTickWithoutWorkIsQuiet(t *testing.T) {
	e, rec := newTestEngine()
	f := e.Tick(0)
	if f.Outbox != nil || f.Err != nil || f.Generation != 0 {
		t.Errorf("empty tick = %+v", f)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("empty tick called host %d times", len(rec.Calls()))
	}
	if e.NeedsFrame() {
		t.Error("idle engine should not need frames")
	}
}

func TestRejectedCommandsDoNotAbortBatch(t *testing.T) {
	e, rec := newTestEngine()
	e.Queue().Enqueue(
		bridge.Create(1, node.KindValue, nil),
		bridge.Create(1, node.KindValue, nil),
		bridge.Connect(1, 99),
		bridge.Create(2, node.KindConst, map[string]any{"value": 4}),
		bridge.Command{Op: bridge.OpCreate, Node: 3, Kind: "teleport"},
	)
	f := e.Tick(0)
	if f.Applied != 5 || f.Rejected != 3 {
		t.Errorf("applied=%d rejected=%d, want 5 and 3", f.Applied, f.Rejected)
	}
	if _, ok := e.Graph().Node(2); !ok {
		t.Error("command after a rejection was not applied")
	}

	rejects := rec.Filter(bridge.CallRejectCommand)
	var got []errors.Code
	for _, r := range rejects {
		got = append(got, errors.GetCode(r.Err))
	}
	want := []errors.Code{errors.ErrCodeDuplicateID, errors.ErrCodeUnknownID, errors.ErrCodeInvalidConfig}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rejection codes (-want +got):\n%s", diff)
	}
	if rejects[0].Command.Node != 1 || rejects[2].Command.Kind != "teleport" {
		t.Errorf("rejections carry wrong commands: %+v", rejects)
	}
}

func TestHostCallbackOrder(t *testing.T) {
	e, rec := newTestEngine()
	cmds := opacityScene()
	cmds = append(cmds,
		bridge.Drop(42),
		bridge.Create(4, node.KindProps, map[string]any{"props": map[string]any{"label": 2}}),
		bridge.ConnectToView(4, 8),
		bridge.GetValue(2, 5),
	)
	e.Queue().Enqueue(cmds...)
	e.Tick(0)

	var kinds []bridge.CallKind
	for _, c := range rec.Calls() {
		kinds = append(kinds, c.Kind)
	}
	want := []bridge.CallKind{
		bridge.CallApplyViewAttributes,
		bridge.CallRejectCommand,
		bridge.CallEmitPropsChange,
		bridge.CallResolveGetValue,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("callback order (-want +got):\n%s", diff)
	}
}

func TestGetValue(t *testing.T) {
	e, rec := newTestEngine()
	e.Queue().Enqueue(
		bridge.Create(1, node.KindValue, map[string]any{"value": 3}),
		bridge.Create(2, node.KindOp, map[string]any{"op": "multiply", "input": []any{1, 1}}),
		bridge.GetValue(2, 10),
		bridge.GetValue(99, 11),
	)
	e.Tick(0)

	got := rec.Filter(bridge.CallResolveGetValue)
	want := []bridge.Call{
		{Kind: bridge.CallResolveGetValue, Request: 10, Value: value.Number(9)},
		{Kind: bridge.CallResolveGetValue, Request: 11, Value: value.Number(0)},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(value.Value.Equal)); diff != "" {
		t.Errorf("resolveGetValue (-want +got):\n%s", diff)
	}
}

func TestSetValueRejectsUnsupportedTypes(t *testing.T) {
	e, _ := newTestEngine()
	if err := e.Apply(bridge.Create(1, node.KindValue, nil)); err != nil {
		t.Fatal(err)
	}
	err := e.Apply(bridge.SetValue(1, struct{}{}))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("SetValue(struct{}) = %v, want INVALID_CONFIG", err)
	}
	if err := e.Apply(bridge.SetValue(1, "hello")); err != nil {
		t.Errorf("SetValue(string) = %v", err)
	}
}

func TestClockKeepsFramesComing(t *testing.T) {
	e, _ := newTestEngine()
	e.Queue().Enqueue(
		bridge.Create(1, node.KindClock, nil),
		bridge.Create(2, node.KindClockStart, map[string]any{"clock": 1}),
		bridge.Create(3, node.KindAlways, map[string]any{"what": 2}),
		bridge.Create(4, node.KindAlways, map[string]any{"what": 1}),
	)
	if !e.NeedsFrame() {
		t.Error("queued commands should request a frame")
	}
	e.Tick(0)
	if !e.NeedsFrame() {
		t.Fatal("running clock should request frames")
	}

	f := e.Tick(32_000_000)
	if f.Outbox == nil {
		t.Fatal("clock tick produced no pass")
	}
	if got := e.Graph().Value(1); !got.Equal(value.Number(32)) {
		t.Errorf("clock = %v, want 32", got)
	}

	// clockStart re-runs on every tick of its clock, so remove it first.
	e.Queue().Enqueue(
		bridge.Drop(3),
		bridge.Drop(2),
		bridge.Create(5, node.KindClockStop, map[string]any{"clock": 1}),
		bridge.Create(6, node.KindAlways, map[string]any{"what": 5}),
	)
	e.Tick(48_000_000)
	if e.Graph().ClockRunning(1) {
		t.Fatal("clock still running after clockStop")
	}
	if e.NeedsFrame() {
		t.Error("stopped clock should not request frames")
	}
}

func TestDispatchEventThroughQueue(t *testing.T) {
	e, rec := newTestEngine()
	e.Queue().Enqueue(
		bridge.ConfigureProps([]string{"translateY"}, nil),
		bridge.Create(1, node.KindValue, map[string]any{"value": 0}),
		bridge.Create(2, node.KindEvent, map[string]any{
			"argMapping": []any{map[string]any{"path": []any{"contentOffset", "y"}, "node": 1}},
		}),
		bridge.Create(3, node.KindProps, map[string]any{"props": map[string]any{"translateY": 1}}),
		bridge.ConnectToView(3, 7),
		bridge.AttachEvent(7, "onScroll", 2),
	)
	e.Tick(0)
	rec.Reset()

	e.Queue().Enqueue(bridge.DispatchEvent(7, "onScroll", map[string]any{
		"contentOffset": map[string]any{"y": 120.0},
	}))
	e.Tick(16_000_000)

	applied := rec.Filter(bridge.CallApplyViewAttributes)
	if len(applied) != 1 || !applied[0].Attrs["translateY"].Equal(value.Number(120)) {
		t.Errorf("applied = %+v, want translateY 120", applied)
	}
}
