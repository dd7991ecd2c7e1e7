package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/pipeline"
	"github.com/matzehuels/kinetic/pkg/value"
)

// maxWatchLog is the number of event lines the watch view keeps.
const maxWatchLog = 6

// watchCommand creates the watch command: a live terminal view of the
// attributes a scene drives.
func (c *CLI) watchCommand() *cobra.Command {
	var hold bool

	cmd := &cobra.Command{
		Use:               "watch [scene]",
		Short:             "Play a scene in real time and watch view attributes change",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], hold)
		},
	}
	cmd.Flags().BoolVar(&hold, "hold", true, "keep ticking after the script ends")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input string, hold bool) error {
	s, err := c.loadScene(input)
	if err != nil {
		return err
	}

	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewWatchModel(s.Name), tea.WithContext(ctx), tea.WithAltScreen())
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	played := make(chan error, 1)
	go func() {
		_, err := runner.Play(playCtx, s, pipeline.PlayOptions{Realtime: true, Hold: hold, Host: teaHost{send: p.Send}})
		p.Send(watchDoneMsg{err: err})
		played <- err
	}()

	final, err := p.Run()
	cancel()
	playErr := <-played
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(WatchModel); ok && m.Err != nil {
		return m.Err
	}
	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}
	return nil
}

// =============================================================================
// Messages
// =============================================================================

type watchAttrsMsg struct {
	view  node.ViewID
	attrs map[string]any
}

type watchLogMsg string

type watchDoneMsg struct{ err error }

// teaHost forwards engine callbacks to a bubbletea program.
type teaHost struct {
	send func(tea.Msg)
}

func (h teaHost) ApplyViewAttributes(view node.ViewID, attrs value.Props) {
	h.send(watchAttrsMsg{view: view, attrs: attrs.Native()})
}

func (h teaHost) EmitPropsChange(view node.ViewID, attrs value.Props) {
	h.send(watchAttrsMsg{view: view, attrs: attrs.Native()})
}

func (h teaHost) EmitEvent(view node.ViewID, name string, payload value.Value) {
	h.send(watchLogMsg(fmt.Sprintf("event view=%d %s %s", view, name, payload)))
}

func (h teaHost) EmitCall(id node.ID, args []value.Value) {
	h.send(watchLogMsg(fmt.Sprintf("call node=%d %v", id, args)))
}

func (h teaHost) ResolveGetValue(request uint64, v value.Value) {
	h.send(watchLogMsg(fmt.Sprintf("getValue #%d = %s", request, v)))
}

func (h teaHost) RejectCommand(cmd bridge.Command, err error) {
	h.send(watchLogMsg(fmt.Sprintf("rejected %s: %v", cmd, err)))
}

// =============================================================================
// WatchModel - Live attribute table
// =============================================================================

// WatchModel is the bubbletea model for the watch command.
type WatchModel struct {
	Scene   string
	Views   map[node.ViewID]map[string]any
	Log     []string
	Updates int
	Offset  int
	Height  int
	Done    bool
	Err     error
}

// NewWatchModel creates an empty watch model.
func NewWatchModel(sceneName string) WatchModel {
	return WatchModel{
		Scene:  sceneName,
		Views:  map[node.ViewID]map[string]any{},
		Height: 15,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if m.Offset < len(m.Views)-1 {
				m.Offset++
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8-maxWatchLog, 3)
	case watchAttrsMsg:
		attrs := m.Views[msg.view]
		if attrs == nil {
			attrs = map[string]any{}
			m.Views[msg.view] = attrs
		}
		maps.Copy(attrs, msg.attrs)
		m.Updates++
	case watchLogMsg:
		m.Log = append(m.Log, string(msg))
		if len(m.Log) > maxWatchLog {
			m.Log = m.Log[len(m.Log)-maxWatchLog:]
		}
	case watchDoneMsg:
		m.Done = true
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.Err = msg.err
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Watching " + m.Scene))
	b.WriteString("\n")
	status := fmt.Sprintf("%d updates", m.Updates)
	if m.Done {
		status += " · finished"
	}
	b.WriteString(StyleDim.Render(status + "   ↑/↓ scroll  q quit"))
	b.WriteString("\n\n")

	views := slices.Sorted(maps.Keys(m.Views))
	end := min(m.Offset+m.Height, len(views))
	var rows [][]string
	for _, v := range views[min(m.Offset, end):end] {
		rows = append(rows, []string{fmt.Sprintf("%d", v), formatWatchAttrs(m.Views[v])})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("View", "Attributes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleNumber
			}
			return StyleValue
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	for _, line := range m.Log {
		b.WriteString(StyleDim.Render("  " + line))
		b.WriteString("\n")
	}
	return b.String()
}

func formatWatchAttrs(attrs map[string]any) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		v := attrs[k]
		if f, ok := v.(float64); ok {
			parts = append(parts, fmt.Sprintf("%s=%.3f", k, f))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, "  ")
}
