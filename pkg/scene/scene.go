// Package scene loads declarative animation graphs from TOML or YAML files.
//
// A scene lists the nodes of a graph, extra dependency edges, the views its
// Props nodes drive, the events its Event nodes handle, the native/UI
// attribute partition and a frame-indexed script of host commands:
//
//	name = "fade"
//	frames = 60
//
//	[props]
//	native = ["opacity"]
//
//	[[nodes]]
//	id = 1
//	kind = "value"
//	params = { value = 0 }
//
//	[[nodes]]
//	id = 2
//	kind = "props"
//	params = { props = { opacity = 1 } }
//
//	[[views]]
//	node = 2
//	view = 7
//
//	[[script]]
//	frame = 10
//	op = "setValue"
//	node = 1
//	value = 0.5
//
// [Scene.Setup] turns the declarations into the command batch that builds the
// graph; [Scene.ScriptAt] returns the batch for one frame.
package scene

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/cache"
	"github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/node"
)

// Format is a scene file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported scene format %q", filepath.Ext(path))
}

// Defaults applied by Parse.
const (
	DefaultFrames  = 60
	DefaultFrameMs = 1000.0 / 60
)

// Scene is a parsed scene file.
type Scene struct {
	Name        string  `toml:"name" yaml:"name"`
	Description string  `toml:"description" yaml:"description"`
	Frames      int     `toml:"frames" yaml:"frames"`
	FrameMs     float64 `toml:"frame_ms" yaml:"frame_ms"`

	Props  PropsConfig    `toml:"props" yaml:"props"`
	Nodes  []NodeDecl     `toml:"nodes" yaml:"nodes"`
	Edges  []Edge         `toml:"edges" yaml:"edges"`
	Views  []ViewBinding  `toml:"views" yaml:"views"`
	Events []EventBinding `toml:"events" yaml:"events"`
	Script []Step         `toml:"script" yaml:"script"`

	hash string
}

// PropsConfig is the native/UI attribute partition.
type PropsConfig struct {
	Native []string `toml:"native" yaml:"native"`
	UI     []string `toml:"ui" yaml:"ui"`
}

// NodeDecl declares one node.
type NodeDecl struct {
	ID     int64          `toml:"id" yaml:"id"`
	Kind   string         `toml:"kind" yaml:"kind"`
	Params map[string]any `toml:"params" yaml:"params"`
}

// Edge is an explicit connect beyond the edges node params imply.
type Edge struct {
	Parent int64 `toml:"parent" yaml:"parent"`
	Child  int64 `toml:"child" yaml:"child"`
}

// ViewBinding attaches a Props node to a view.
type ViewBinding struct {
	Node int64 `toml:"node" yaml:"node"`
	View int64 `toml:"view" yaml:"view"`
}

// EventBinding attaches an Event node to a (view, event name).
type EventBinding struct {
	View int64  `toml:"view" yaml:"view"`
	Name string `toml:"name" yaml:"name"`
	Node int64  `toml:"node" yaml:"node"`
}

// Step is one scripted host command. Only the fields its op uses are read.
type Step struct {
	Frame   int            `toml:"frame" yaml:"frame"`
	Op      string         `toml:"op" yaml:"op"`
	Node    int64          `toml:"node" yaml:"node"`
	Kind    string         `toml:"kind" yaml:"kind"`
	Params  map[string]any `toml:"params" yaml:"params"`
	Parent  int64          `toml:"parent" yaml:"parent"`
	Child   int64          `toml:"child" yaml:"child"`
	View    int64          `toml:"view" yaml:"view"`
	Event   string         `toml:"event" yaml:"event"`
	Native  []string       `toml:"native" yaml:"native"`
	UI      []string       `toml:"ui" yaml:"ui"`
	Value   any            `toml:"value" yaml:"value"`
	Request uint64         `toml:"request" yaml:"request"`
	Payload map[string]any `toml:"payload" yaml:"payload"`
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	if err := errors.ValidateScenePath(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "scene %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a scene. Unknown keys are rejected.
func Parse(data []byte, format Format) (*Scene, error) {
	var s Scene
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "parse TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidScene, "unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "parse YAML")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported scene format %q", format)
	}

	if s.Frames == 0 {
		s.Frames = DefaultFrames
	}
	if s.FrameMs == 0 {
		s.FrameMs = DefaultFrameMs
	}
	if s.Frames < 0 || s.FrameMs < 0 || math.IsNaN(s.FrameMs) {
		return nil, errors.New(errors.ErrCodeInvalidScene, "frames and frame_ms must be positive")
	}
	s.hash = cache.Hash(data)
	return &s, nil
}

// Hash identifies the scene source. Equal sources have equal hashes.
func (s *Scene) Hash() string { return s.hash }

// FrameTimestamp returns the host timestamp of frame i in nanoseconds.
func (s *Scene) FrameTimestamp(i int) int64 {
	return int64(math.Round(float64(i) * s.FrameMs * 1e6))
}

// Setup returns the batch that builds the graph: the props partition, the
// nodes in declaration order, then edges, views and events.
func (s *Scene) Setup() ([]bridge.Command, error) {
	var cmds []bridge.Command
	if len(s.Props.Native) > 0 || len(s.Props.UI) > 0 {
		cmds = append(cmds, bridge.ConfigureProps(s.Props.Native, s.Props.UI))
	}
	for i, n := range s.Nodes {
		id, err := toID(n.ID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "nodes[%d]", i)
		}
		kind, ok := node.ParseKind(n.Kind)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidScene, "nodes[%d]: unknown kind %q", i, n.Kind)
		}
		cmds = append(cmds, bridge.Create(id, kind, n.Params))
	}
	for i, e := range s.Edges {
		parent, err1 := toID(e.Parent)
		child, err2 := toID(e.Child)
		if err1 != nil || err2 != nil {
			return nil, errors.New(errors.ErrCodeInvalidScene, "edges[%d]: node id out of range", i)
		}
		cmds = append(cmds, bridge.Connect(parent, child))
	}
	for i, v := range s.Views {
		id, err := toID(v.Node)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "views[%d]", i)
		}
		cmds = append(cmds, bridge.ConnectToView(id, node.ViewID(v.View)))
	}
	for i, ev := range s.Events {
		id, err := toID(ev.Node)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "events[%d]", i)
		}
		cmds = append(cmds, bridge.AttachEvent(node.ViewID(ev.View), ev.Name, id))
	}
	return cmds, nil
}

// ScriptAt returns the scripted commands for frame, in file order.
func (s *Scene) ScriptAt(frame int) ([]bridge.Command, error) {
	var cmds []bridge.Command
	for i, st := range s.Script {
		if st.Frame != frame {
			continue
		}
		cmd, err := st.Command()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "script[%d]", i)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// ScriptFrames returns the distinct frames that have scripted commands, in
// ascending order.
func (s *Scene) ScriptFrames() []int {
	var frames []int
	for _, st := range s.Script {
		frames = append(frames, st.Frame)
	}
	slices.Sort(frames)
	return slices.Compact(frames)
}

// Command converts the step into a bridge command.
func (st Step) Command() (bridge.Command, error) {
	op, ok := bridge.ParseOp(st.Op)
	if !ok {
		return bridge.Command{}, errors.New(errors.ErrCodeInvalidScene, "unknown op %q", st.Op)
	}
	ids := make([]node.ID, 3)
	for i, raw := range []int64{st.Node, st.Parent, st.Child} {
		id, err := toID(raw)
		if err != nil {
			return bridge.Command{}, err
		}
		ids[i] = id
	}
	return bridge.Command{
		Op:      op,
		Node:    ids[0],
		Kind:    st.Kind,
		Params:  st.Params,
		Parent:  ids[1],
		Child:   ids[2],
		View:    node.ViewID(st.View),
		Event:   st.Event,
		Native:  st.Native,
		UI:      st.UI,
		Value:   st.Value,
		Request: st.Request,
		Payload: st.Payload,
	}, nil
}

func toID(raw int64) (node.ID, error) {
	if raw < 0 || raw > math.MaxUint32 {
		return 0, errors.New(errors.ErrCodeInvalidScene, "node id %d out of range", raw)
	}
	return node.ID(raw), nil
}
