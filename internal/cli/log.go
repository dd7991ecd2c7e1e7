package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Played 120 frames (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logHost is a bridge.Host that writes every callback to the debug log.
type logHost struct {
	logger *log.Logger
}

func (h logHost) ApplyViewAttributes(view node.ViewID, attrs value.Props) {
	h.logger.Debug("native attributes", "view", view, "attrs", attrs.Native())
}

func (h logHost) EmitPropsChange(view node.ViewID, attrs value.Props) {
	h.logger.Debug("props change", "view", view, "attrs", attrs.Native())
}

func (h logHost) EmitEvent(view node.ViewID, name string, payload value.Value) {
	h.logger.Debug("event", "view", view, "name", name, "payload", payload)
}

func (h logHost) EmitCall(id node.ID, args []value.Value) {
	h.logger.Debug("call", "node", id, "args", args)
}

func (h logHost) ResolveGetValue(request uint64, v value.Value) {
	h.logger.Debug("get value", "request", request, "value", v)
}

func (h logHost) RejectCommand(cmd bridge.Command, err error) {
	h.logger.Warn("command rejected", "command", cmd, "error", err)
}
