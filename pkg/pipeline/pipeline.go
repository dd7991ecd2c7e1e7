// Package pipeline plays scenes and exports their graphs.
//
// This package is shared by the run, graph and serve commands so every entry
// point drives the engine the same way.
//
// # Playback
//
// [Runner.Play] runs a scene headless. Two goroutines cooperate the way a
// host application does: a scripting goroutine enqueues the setup batch and
// each frame's scripted commands into the bridge queue, and a rendering
// goroutine ticks the engine once per frame. Every host callback a frame
// produces is recorded in the [Result].
//
// # Export
//
// [Runner.RenderGraph] plays a scene up to a frame and renders the graph as
// it stands then, in any of the formats in [ValidFormats].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Play(ctx, s, pipeline.PlayOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range result.Frames {
//	    fmt.Println(f.Frame, len(f.Calls))
//	}
//
// Deterministic work is cached: a headless playback by scene hash and frame
// count, each export format by scene hash and render options.
package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/cache"
	"github.com/matzehuels/kinetic/pkg/engine"
)

// Format constants for graph export.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported export formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidRankDirs is the set of supported Graphviz rank directions.
var ValidRankDirs = map[string]bool{"TB": true, "LR": true, "BT": true, "RL": true}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: %s)", format, strings.Join(slices.Sorted(maps.Keys(ValidFormats)), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// PlayOptions configures a playback.
type PlayOptions struct {
	// Frames is the number of frames to play. Zero plays the whole scene.
	Frames int

	// Realtime paces frames at the scene's frame interval instead of running
	// them back to back.
	Realtime bool

	// Hold keeps ticking in real time after the last scripted frame until
	// the context is canceled. Held frames are not recorded.
	Hold bool

	// Engine plays into an existing engine, for example one an inspector is
	// watching. The engine keeps its own host and no calls are recorded.
	Engine *engine.Engine

	// Host additionally receives every callback of the playback. It is
	// ignored when Engine is set.
	Host bridge.Host

	// Refresh bypasses the playback cache.
	Refresh bool
}

// cacheable reports whether the playback is deterministic and self-contained.
func (o PlayOptions) cacheable() bool {
	return !o.Realtime && !o.Hold && o.Engine == nil && o.Host == nil
}

// RenderOptions configures a graph export.
type RenderOptions struct {
	Formats    []string `json:"formats,omitempty"`
	Frame      int      `json:"frame"` // play frames [0, Frame] before exporting
	RankDir    string   `json:"rankdir,omitempty"`
	ShowValues bool     `json:"values,omitempty"`
	Scale      float64  `json:"scale,omitempty"` // PNG scale factor
	Refresh    bool     `json:"refresh,omitempty"`
}

// ValidateAndSetDefaults checks the options and applies defaults.
func (o *RenderOptions) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.RankDir == "" {
		o.RankDir = "TB"
	}
	if o.Scale == 0 {
		o.Scale = 2
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if !ValidRankDirs[o.RankDir] {
		return fmt.Errorf("invalid rankdir: %q (must be one of: TB, LR, BT, RL)", o.RankDir)
	}
	if o.Frame < 0 {
		return fmt.Errorf("frame must not be negative")
	}
	return nil
}

// ArtifactKeyOpts returns cache key options for one export format.
func (o *RenderOptions) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		RankDir:    o.RankDir,
		Frame:      o.Frame,
		ShowValues: o.ShowValues,
	}
}

// Result is the outcome of a playback.
type Result struct {
	RunID     string     `json:"run_id"`
	Scene     string     `json:"scene"`
	SceneHash string     `json:"scene_hash"`
	Frames    []FrameLog `json:"frames"`
	Stats     Stats      `json:"stats"`
	CacheHit  bool       `json:"-"`
}

// Stats summarizes a playback.
type Stats struct {
	Frames      int           `json:"frames"`
	Passes      uint64        `json:"passes"`
	Evaluations uint64        `json:"evaluations"`
	Commands    int           `json:"commands"`
	Rejected    int           `json:"rejected"`
	Duration    time.Duration `json:"duration_ns"`
}

// FrameLog records what one frame delivered to the host. Frames that
// produced nothing are omitted from Result.Frames.
type FrameLog struct {
	Frame       int       `json:"frame"`
	TimestampNs int64     `json:"timestamp_ns"`
	Generation  uint64    `json:"generation"`
	Calls       []CallLog `json:"calls"`
}

// CallLog is a JSON-friendly copy of a recorded host callback.
type CallLog struct {
	Kind    bridge.CallKind `json:"kind"`
	View    int64           `json:"view,omitempty"`
	Name    string          `json:"name,omitempty"`
	Node    uint32          `json:"node,omitempty"`
	Request uint64          `json:"request,omitempty"`
	Attrs   map[string]any  `json:"attrs,omitempty"`
	Value   any             `json:"value,omitempty"`
	Args    []any           `json:"args,omitempty"`
	Command string          `json:"command,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// String renders the call on one line, as the run command prints it.
func (c CallLog) String() string {
	switch c.Kind {
	case bridge.CallApplyViewAttributes, bridge.CallEmitPropsChange:
		return fmt.Sprintf("%s view=%d %s", c.Kind, c.View, formatAttrs(c.Attrs))
	case bridge.CallEmitEvent:
		return fmt.Sprintf("%s view=%d name=%s payload=%v", c.Kind, c.View, c.Name, c.Value)
	case bridge.CallEmitCall:
		return fmt.Sprintf("%s node=%d args=%v", c.Kind, c.Node, c.Args)
	case bridge.CallResolveGetValue:
		return fmt.Sprintf("%s request=%d value=%v", c.Kind, c.Request, c.Value)
	case bridge.CallRejectCommand:
		return fmt.Sprintf("%s %s: %s", c.Kind, c.Command, c.Error)
	}
	return string(c.Kind)
}

func formatAttrs(attrs map[string]any) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func callLog(c bridge.Call) CallLog {
	l := CallLog{
		Kind:    c.Kind,
		View:    int64(c.View),
		Name:    c.Name,
		Node:    uint32(c.Node),
		Request: c.Request,
	}
	if c.Attrs != nil {
		l.Attrs = c.Attrs.Native()
	}
	switch c.Kind {
	case bridge.CallEmitEvent, bridge.CallResolveGetValue:
		l.Value = c.Value.Native()
	case bridge.CallEmitCall:
		for _, a := range c.Args {
			l.Args = append(l.Args, a.Native())
		}
	case bridge.CallRejectCommand:
		l.Command = c.Command.String()
		if c.Err != nil {
			l.Error = c.Err.Error()
		}
	}
	return l
}
