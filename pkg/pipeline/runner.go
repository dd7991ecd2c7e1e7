package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/cache"
	"github.com/matzehuels/kinetic/pkg/engine"
	"github.com/matzehuels/kinetic/pkg/observability"
	"github.com/matzehuels/kinetic/pkg/render"
	"github.com/matzehuels/kinetic/pkg/scene"
)

// Runner plays scenes and exports graphs with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different scenes.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Play runs a scene and records what every frame delivered to the host.
func (r *Runner) Play(ctx context.Context, s *scene.Scene, opts PlayOptions) (*Result, error) {
	frames := opts.Frames
	if frames <= 0 || frames > s.Frames {
		frames = s.Frames
	}
	runID := uuid.NewString()
	start := time.Now()

	var cacheKey string
	if opts.cacheable() {
		cacheKey = r.Keyer.PlayKey(s.Hash(), cache.PlayKeyOpts{Frames: frames, IntervalMs: s.FrameMs})
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				var cached Result
				if err := json.Unmarshal(data, &cached); err == nil {
					cached.RunID = runID
					cached.CacheHit = true
					r.Logger.Debug("playback from cache", "scene", s.Name, "frames", frames)
					return &cached, nil
				}
			}
		}
	}

	observability.Pipeline().OnPlayStart(ctx, runID, frames)
	result, err := r.play(ctx, s, frames, opts)
	observability.Pipeline().OnPlayComplete(ctx, runID, frames, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	result.Stats.Duration = time.Since(start)

	r.Logger.Info("played scene",
		"scene", s.Name,
		"frames", result.Stats.Frames,
		"passes", result.Stats.Passes,
		"rejected", result.Stats.Rejected,
		"duration", result.Stats.Duration)

	if cacheKey != "" {
		if data, err := json.Marshal(result); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.PlayTTL)
		}
	}
	return result, nil
}

// play runs the scripting and rendering goroutines. The renderer announces
// each frame; the scripter enqueues that frame's batch and acknowledges, so
// a frame's commands are always applied by that frame's tick.
func (r *Runner) play(ctx context.Context, s *scene.Scene, frames int, opts PlayOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	setup, err := s.Setup()
	if err != nil {
		return nil, err
	}

	rec := bridge.NewRecorder()
	e := opts.Engine
	if e == nil {
		e = engine.New(engine.Options{Host: bridge.Tee(rec, opts.Host), Logger: r.Logger})
	}
	q := e.Queue()

	result := &Result{Scene: s.Name, SceneHash: s.Hash()}
	g, gctx := errgroup.WithContext(ctx)
	announce := make(chan int)
	ready := make(chan struct{})

	// scripting goroutine
	g.Go(func() error {
		defer close(ready)
		for i := range announce {
			batch := []bridge.Command(nil)
			if i == 0 {
				batch = append(batch, setup...)
			}
			cmds, err := s.ScriptAt(i)
			if err != nil {
				return err
			}
			batch = append(batch, cmds...)
			q.Enqueue(batch...)
			select {
			case ready <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// rendering goroutine
	g.Go(func() error {
		defer close(announce)
		var pace *time.Ticker
		if opts.Realtime || opts.Hold {
			pace = time.NewTicker(frameInterval(s))
			defer pace.Stop()
		}
		for i := 0; i < frames; i++ {
			select {
			case announce <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case _, ok := <-ready:
				if !ok {
					return nil
				}
			case <-gctx.Done():
				return gctx.Err()
			}
			if pace != nil && i > 0 {
				select {
				case <-pace.C:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			f := e.TickContext(gctx, s.FrameTimestamp(i))
			result.Stats.Frames++
			result.Stats.Commands += f.Applied
			result.Stats.Rejected += f.Rejected
			if fl := frameLog(i, f, rec); fl != nil {
				result.Frames = append(result.Frames, *fl)
			}
		}
		if !opts.Hold {
			return nil
		}
		for i := frames; ; i++ {
			select {
			case <-pace.C:
			case <-gctx.Done():
				return nil
			}
			e.TickContext(gctx, s.FrameTimestamp(i))
			rec.Reset()
		}
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("play %s: %w", s.Name, err)
	}
	stats := e.Graph().Stats()
	result.Stats.Passes = stats.Passes
	result.Stats.Evaluations = stats.Evaluations
	return result, nil
}

func frameInterval(s *scene.Scene) time.Duration {
	d := time.Duration(s.FrameMs * float64(time.Millisecond))
	if d <= 0 {
		d = time.Duration(scene.DefaultFrameMs * float64(time.Millisecond))
	}
	return d
}

// frameLog drains the recorder into a FrameLog, or returns nil when the
// frame delivered nothing.
func frameLog(i int, f engine.Frame, rec *bridge.Recorder) *FrameLog {
	calls := rec.Calls()
	rec.Reset()
	if len(calls) == 0 {
		return nil
	}
	fl := &FrameLog{Frame: i, TimestampNs: f.TimestampNs, Generation: f.Generation}
	for _, c := range calls {
		fl.Calls = append(fl.Calls, callLog(c))
	}
	return fl
}

// RenderGraphWithCacheInfo plays the scene through opts.Frame and exports the
// graph in every requested format, reporting whether all artifacts came from
// the cache.
func (r *Runner) RenderGraphWithCacheInfo(ctx context.Context, s *scene.Scene, opts RenderOptions) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, fmt.Errorf("invalid options: %w", err)
	}

	artifacts := make(map[string][]byte)
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(s.Hash(), opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := r.renderGraph(ctx, s, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(s.Hash(), opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, key, data, cache.ArtifactTTL)
	}
	r.Logger.Info("rendered graph",
		"scene", s.Name,
		"formats", opts.Formats,
		"frame", opts.Frame,
		"duration", time.Since(start))
	return rendered, false, nil
}

// RenderGraph is RenderGraphWithCacheInfo without the cache hit info.
func (r *Runner) RenderGraph(ctx context.Context, s *scene.Scene, opts RenderOptions) (map[string][]byte, error) {
	artifacts, _, err := r.RenderGraphWithCacheInfo(ctx, s, opts)
	return artifacts, err
}

func (r *Runner) renderGraph(ctx context.Context, s *scene.Scene, opts RenderOptions) (map[string][]byte, error) {
	e := engine.New(engine.Options{Logger: r.Logger})
	if _, err := r.play(ctx, s, min(opts.Frame+1, s.Frames), PlayOptions{Engine: e}); err != nil {
		return nil, err
	}
	snap := e.Snapshot()
	dot := render.ToDOT(snap, render.Options{RankDir: opts.RankDir, ShowValues: opts.ShowValues, Title: s.Name})

	out := make(map[string][]byte, len(opts.Formats))
	var svg []byte
	for _, format := range opts.Formats {
		switch format {
		case FormatDOT:
			out[format] = []byte(dot)
			continue
		case FormatJSON:
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode snapshot: %w", err)
			}
			out[format] = data
			continue
		}

		if svg == nil {
			var err error
			if svg, err = render.RenderSVG(ctx, dot); err != nil {
				return nil, err
			}
		}
		switch format {
		case FormatSVG:
			out[format] = svg
		case FormatPNG:
			png, err := render.ToPNG(ctx, svg, opts.Scale)
			if err != nil {
				return nil, err
			}
			out[format] = png
		case FormatPDF:
			pdf, err := render.ToPDF(ctx, svg)
			if err != nil {
				return nil, err
			}
			out[format] = pdf
		}
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
