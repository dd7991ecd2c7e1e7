// Package bridge carries commands from the scripting side into the engine and
// results from the engine back to the host.
//
// The scripting goroutine builds [Command] values and hands whole batches to
// a [Queue]. The rendering goroutine drains the queue before each frame and
// applies the batch in order. Results travel the other way through the [Host]
// interface; [Recorder] is an in-memory Host for tests and headless runs.
package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/kinetic/pkg/node"
)

// Op enumerates command operations.
type Op uint8

const (
	OpCreate Op = iota + 1
	OpDrop
	OpConnect
	OpDisconnect
	OpConnectToView
	OpDisconnectFromView
	OpAttachEvent
	OpDetachEvent
	OpConfigureProps
	OpSetValue
	OpGetValue
	OpDispatchEvent
)

var opNames = map[Op]string{
	OpCreate:             "create",
	OpDrop:               "drop",
	OpConnect:            "connect",
	OpDisconnect:         "disconnect",
	OpConnectToView:      "connectToView",
	OpDisconnectFromView: "disconnectFromView",
	OpAttachEvent:        "attachEvent",
	OpDetachEvent:        "detachEvent",
	OpConfigureProps:     "configureProps",
	OpSetValue:           "setValue",
	OpGetValue:           "getValue",
	OpDispatchEvent:      "dispatchEvent",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// ParseOp resolves a command name. Matching is case-insensitive.
func ParseOp(name string) (Op, bool) {
	for o, n := range opNames {
		if strings.EqualFold(n, name) {
			return o, true
		}
	}
	return 0, false
}

// MarshalText encodes the op by name.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes an op name.
func (o *Op) UnmarshalText(b []byte) error {
	op, ok := ParseOp(string(b))
	if !ok {
		return fmt.Errorf("unknown command %q", b)
	}
	*o = op
	return nil
}

// Command is one mutation or request sent to the engine. Which fields are
// meaningful depends on Op:
//
//	create              Node, Kind, Params
//	drop                Node
//	connect/disconnect  Parent, Child
//	connectToView       Node, View
//	disconnectFromView  View
//	attachEvent         View, Event, Node
//	detachEvent         View, Event
//	configureProps      Native, UI
//	setValue            Node, Value
//	getValue            Node, Request
//	dispatchEvent       View, Event, Payload
type Command struct {
	Op      Op             `json:"op"`
	Node    node.ID        `json:"node,omitempty"`
	Kind    string         `json:"kind,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Parent  node.ID        `json:"parent,omitempty"`
	Child   node.ID        `json:"child,omitempty"`
	View    node.ViewID    `json:"view,omitempty"`
	Event   string         `json:"event,omitempty"`
	Native  []string       `json:"native,omitempty"`
	UI      []string       `json:"ui,omitempty"`
	Value   any            `json:"value,omitempty"`
	Request uint64         `json:"request,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// String renders the command for logs.
func (c Command) String() string {
	switch c.Op {
	case OpCreate:
		return fmt.Sprintf("create(%d, %s)", c.Node, c.Kind)
	case OpDrop:
		return fmt.Sprintf("drop(%d)", c.Node)
	case OpConnect, OpDisconnect:
		return fmt.Sprintf("%s(%d, %d)", c.Op, c.Parent, c.Child)
	case OpConnectToView:
		return fmt.Sprintf("connectToView(%d, view %d)", c.Node, c.View)
	case OpDisconnectFromView:
		return fmt.Sprintf("disconnectFromView(view %d)", c.View)
	case OpAttachEvent:
		return fmt.Sprintf("attachEvent(view %d, %s, %d)", c.View, c.Event, c.Node)
	case OpDetachEvent:
		return fmt.Sprintf("detachEvent(view %d, %s)", c.View, c.Event)
	case OpConfigureProps:
		return fmt.Sprintf("configureProps(native=%v, ui=%v)", c.Native, c.UI)
	case OpSetValue:
		return fmt.Sprintf("setValue(%d, %v)", c.Node, c.Value)
	case OpGetValue:
		return fmt.Sprintf("getValue(%d, request %d)", c.Node, c.Request)
	case OpDispatchEvent:
		return fmt.Sprintf("dispatchEvent(view %d, %s)", c.View, c.Event)
	}
	return c.Op.String()
}

// DecodeCommands decodes a JSON array of commands.
func DecodeCommands(data []byte) ([]Command, error) {
	var cmds []Command
	if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("decode commands: %w", err)
	}
	return cmds, nil
}

// Create returns a create command.
func Create(id node.ID, kind node.Kind, params map[string]any) Command {
	return Command{Op: OpCreate, Node: id, Kind: kind.String(), Params: params}
}

// Drop returns a drop command.
func Drop(id node.ID) Command { return Command{Op: OpDrop, Node: id} }

// Connect returns a connect command.
func Connect(parent, child node.ID) Command {
	return Command{Op: OpConnect, Parent: parent, Child: child}
}

// Disconnect returns a disconnect command.
func Disconnect(parent, child node.ID) Command {
	return Command{Op: OpDisconnect, Parent: parent, Child: child}
}

// ConnectToView returns a connectToView command.
func ConnectToView(id node.ID, view node.ViewID) Command {
	return Command{Op: OpConnectToView, Node: id, View: view}
}

// DisconnectFromView returns a disconnectFromView command.
func DisconnectFromView(view node.ViewID) Command {
	return Command{Op: OpDisconnectFromView, View: view}
}

// AttachEvent returns an attachEvent command.
func AttachEvent(view node.ViewID, event string, id node.ID) Command {
	return Command{Op: OpAttachEvent, View: view, Event: event, Node: id}
}

// DetachEvent returns a detachEvent command.
func DetachEvent(view node.ViewID, event string) Command {
	return Command{Op: OpDetachEvent, View: view, Event: event}
}

// ConfigureProps returns a configureProps command.
func ConfigureProps(native, ui []string) Command {
	return Command{Op: OpConfigureProps, Native: native, UI: ui}
}

// SetValue returns a setValue command.
func SetValue(id node.ID, v any) Command {
	return Command{Op: OpSetValue, Node: id, Value: v}
}

// GetValue returns a getValue command.
func GetValue(id node.ID, request uint64) Command {
	return Command{Op: OpGetValue, Node: id, Request: request}
}

// DispatchEvent returns a dispatchEvent command.
func DispatchEvent(view node.ViewID, event string, payload map[string]any) Command {
	return Command{Op: OpDispatchEvent, View: view, Event: event, Payload: payload}
}
