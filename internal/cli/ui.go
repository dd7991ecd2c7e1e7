package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/kinetic/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles (the exported ones are shared with the watch view)
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleFrame       = lipgloss.NewStyle().Foreground(colorCyan).Width(10)
	styleReject      = lipgloss.NewStyle().Foreground(colorRed)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// Status Output
// =============================================================================

// status is a one-line message kind: an icon and how the text is styled.
type status struct {
	icon      string
	iconStyle lipgloss.Style
	textStyle lipgloss.Style
}

var (
	statusSuccess = status{"✓", lipgloss.NewStyle().Foreground(colorGreen), lipgloss.NewStyle()}
	statusError   = status{"✗", lipgloss.NewStyle().Foreground(colorRed), lipgloss.NewStyle()}
	statusWarning = status{"!", lipgloss.NewStyle().Foreground(colorYellow), lipgloss.NewStyle().Foreground(colorYellow)}
	statusInfo    = status{"›", lipgloss.NewStyle().Foreground(colorGray), lipgloss.NewStyle()}
)

func (st status) print(format string, args ...any) {
	msg := st.textStyle.Render(fmt.Sprintf(format, args...))
	fmt.Println(st.iconStyle.Render(st.icon) + " " + msg)
}

func printSuccess(format string, args ...any) { statusSuccess.print(format, args...) }
func printError(format string, args ...any)   { statusError.print(format, args...) }
func printWarning(format string, args ...any) { statusWarning.print(format, args...) }
func printInfo(format string, args ...any)    { statusInfo.print(format, args...) }

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// =============================================================================
// File Output
// =============================================================================

const iconArrow = "→"

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Playback Display
// =============================================================================

// printFrame prints the host calls one frame delivered.
func printFrame(f pipeline.FrameLog) {
	label := styleFrame.Render(fmt.Sprintf("frame %d", f.Frame))
	for i, c := range f.Calls {
		if i > 0 {
			label = strings.Repeat(" ", lipgloss.Width(label))
		}
		line := c.String()
		if c.Kind == "rejectCommand" {
			line = styleReject.Render(line)
		}
		fmt.Println(label + " " + line)
	}
}

// printPlayStats prints playback statistics on a single line.
func printPlayStats(st pipeline.Stats, cached bool) {
	parts := []string{
		fmt.Sprintf("%d frames", st.Frames),
		fmt.Sprintf("%d passes", st.Passes),
		fmt.Sprintf("%d evaluations", st.Evaluations),
		fmt.Sprintf("%d commands", st.Commands),
	}
	if st.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", st.Rejected))
	}
	printStatusLine(parts, cached)
}

// printStatusLine prints dim parts separated by dots, ending in a cache marker.
func printStatusLine(parts []string, cached bool) {
	origin := StyleDim.Render("fresh")
	if cached {
		origin = lipgloss.NewStyle().Foreground(colorGreen).Render("cached")
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + origin
	fmt.Println(line)
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}
