package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters implements EngineHooks, CacheHooks and HTTPHooks by keeping
// running totals. The zero value is ready to use and safe for concurrent use.
type Counters struct {
	batches     atomic.Uint64
	commands    atomic.Uint64
	rejected    atomic.Uint64
	passes      atomic.Uint64
	roots       atomic.Uint64
	passNanos   atomic.Int64
	diagnostics atomic.Uint64
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	cacheBytes  atomic.Uint64
	requests    atomic.Uint64
	errors      atomic.Uint64
}

// CounterValues is a point-in-time copy of [Counters].
type CounterValues struct {
	Batches     uint64        `json:"batches"`
	Commands    uint64        `json:"commands"`
	Rejected    uint64        `json:"rejected"`
	Passes      uint64        `json:"passes"`
	DirtyRoots  uint64        `json:"dirtyRoots"`
	PassTime    time.Duration `json:"passTimeNs"`
	Diagnostics uint64        `json:"diagnostics"`
	CacheHits   uint64        `json:"cacheHits"`
	CacheMisses uint64        `json:"cacheMisses"`
	CacheBytes  uint64        `json:"cacheBytes"`
	Requests    uint64        `json:"requests"`
	HTTPErrors  uint64        `json:"httpErrors"`
}

// Values returns the current totals.
func (c *Counters) Values() CounterValues {
	return CounterValues{
		Batches:     c.batches.Load(),
		Commands:    c.commands.Load(),
		Rejected:    c.rejected.Load(),
		Passes:      c.passes.Load(),
		DirtyRoots:  c.roots.Load(),
		PassTime:    time.Duration(c.passNanos.Load()),
		Diagnostics: c.diagnostics.Load(),
		CacheHits:   c.cacheHits.Load(),
		CacheMisses: c.cacheMisses.Load(),
		CacheBytes:  c.cacheBytes.Load(),
		Requests:    c.requests.Load(),
		HTTPErrors:  c.errors.Load(),
	}
}

func (c *Counters) OnBatchApplied(_ context.Context, commands, rejected int) {
	c.batches.Add(1)
	c.commands.Add(uint64(commands))
	c.rejected.Add(uint64(rejected))
}

func (c *Counters) OnCommandRejected(context.Context, string, error) {}

func (c *Counters) OnPassComplete(_ context.Context, _ uint64, roots int, d time.Duration) {
	c.passes.Add(1)
	c.roots.Add(uint64(roots))
	c.passNanos.Add(int64(d))
}

func (c *Counters) OnDiagnostic(context.Context, uint32, string, string) {
	c.diagnostics.Add(1)
}

func (c *Counters) OnCacheHit(context.Context, string)  { c.cacheHits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string) { c.cacheMisses.Add(1) }

func (c *Counters) OnCacheSet(_ context.Context, _ string, size int) {
	c.cacheBytes.Add(uint64(size))
}

func (c *Counters) OnRequest(context.Context, string, string) { c.requests.Add(1) }

func (c *Counters) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	if status >= 500 {
		c.errors.Add(1)
	}
}
