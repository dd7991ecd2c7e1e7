package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Engine hooks
	e := NoopEngineHooks{}
	e.OnBatchApplied(ctx, 3, 1)
	e.OnCommandRejected(ctx, "create", errors.New("duplicate"))
	e.OnPassComplete(ctx, 1, 2, time.Millisecond)
	e.OnDiagnostic(ctx, 4, "opacity", "type mismatch")

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnPlayStart(ctx, "run", 60)
	p.OnPlayComplete(ctx, "run", 60, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/nodes")
	h.OnResponse(ctx, "GET", "/nodes", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine() should return NoopEngineHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	counters := &Counters{}
	SetEngineHooks(counters)
	SetCacheHooks(counters)
	SetHTTPHooks(counters)
	if Engine() != counters || Cache() != counters || HTTP() != counters {
		t.Error("Set*Hooks should install custom hooks")
	}

	// nil is ignored
	SetEngineHooks(nil)
	if Engine() != counters {
		t.Error("SetEngineHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Reset() should restore NoopEngineHooks")
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	c := &Counters{}
	c.OnBatchApplied(ctx, 5, 2)
	c.OnBatchApplied(ctx, 1, 0)
	c.OnPassComplete(ctx, 1, 3, time.Millisecond)
	c.OnDiagnostic(ctx, 1, "opacity", "bad")
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 100)
	c.OnRequest(ctx, "GET", "/stats")
	c.OnResponse(ctx, "GET", "/stats", 500, time.Millisecond)

	got := c.Values()
	want := CounterValues{
		Batches: 2, Commands: 6, Rejected: 2,
		Passes: 1, DirtyRoots: 3, PassTime: time.Millisecond,
		Diagnostics: 1,
		CacheHits:   1, CacheMisses: 1, CacheBytes: 100,
		Requests: 1, HTTPErrors: 1,
	}
	if got != want {
		t.Errorf("Values() = %+v, want %+v", got, want)
	}
}
