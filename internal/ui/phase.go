package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DividerWidth is the default width for divider lines.
const DividerWidth = 64

// PhaseDisplay renders deployment progress to an output writer.
type PhaseDisplay struct {
	w io.Writer
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// Writer returns the underlying writer.
func (pd *PhaseDisplay) Writer() io.Writer {
	return pd.w
}

// RenderProgress renders a phase in progress, without a newline.
// Shows: ◐ Connecting...
func (pd *PhaseDisplay) RenderProgress(name string) {
	style := lipgloss.NewStyle().Foreground(ColorSecondary)
	fmt.Fprintf(pd.w, "%s %s...", style.Render(SymbolProgress), name)
}

// RenderSuccess renders a completed phase.
// Shows: ● Connected (0.3s)
func (pd *PhaseDisplay) RenderSuccess(name string, duration time.Duration) {
	pd.endProgress()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(pd.w, "%s %s %s\n",
		symbolStyle.Render(SymbolComplete),
		name,
		timingStyle.Render(formatDuration(duration)),
	)
}

// RenderFailed renders a failed phase.
// Shows: ✗ Connection failed (2.3s)
func (pd *PhaseDisplay) RenderFailed(name string, duration time.Duration) {
	pd.endProgress()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorError)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(pd.w, "%s %s %s\n",
		symbolStyle.Render(SymbolFail),
		name,
		timingStyle.Render(formatDuration(duration)),
	)
}

// RenderSkipped renders a skipped phase.
// Shows: ⊘ Reload (disabled)
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	symbolStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	reasonStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	if reason != "" {
		fmt.Fprintf(pd.w, "%s %s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
			reasonStyle.Render("("+reason+")"),
		)
	} else {
		fmt.Fprintf(pd.w, "%s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
		)
	}
}

// RenderSubStatus renders an indented sub-status line.
// Shows:   ○ backup                              No existing file to backup
func (pd *PhaseDisplay) RenderSubStatus(symbol string, name string, status string) {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "  %s %s %s\n",
		style.Render(symbol),
		name,
		style.Render(status),
	)
}

// Success renders "✓ msg".
func (pd *PhaseDisplay) Success(msg string) {
	fmt.Fprintf(pd.w, "%s %s\n", SuccessStyle().Render(SymbolSuccess), msg)
}

// Fail renders "✗ msg".
func (pd *PhaseDisplay) Fail(msg string) {
	fmt.Fprintf(pd.w, "%s %s\n", ErrorStyle().Render(SymbolFail), msg)
}

// Warn renders "⚠ msg".
func (pd *PhaseDisplay) Warn(msg string) {
	fmt.Fprintf(pd.w, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}

// Info renders a plain status line.
func (pd *PhaseDisplay) Info(msg string) {
	fmt.Fprintln(pd.w, msg)
}

// Note renders an indented, muted line.
func (pd *PhaseDisplay) Note(msg string) {
	fmt.Fprintf(pd.w, "  %s\n", MutedStyle().Render(msg))
}

// Transfer renders the start of an upload.
// Shows: Uploading dashboard: my-dashboard.yaml → /config/lovelace/my-dashboard.yaml...
func (pd *PhaseDisplay) Transfer(label, local, remote string) {
	fmt.Fprintf(pd.w, "Uploading %s: %s %s %s...\n", label, local, SymbolArrow, InfoStyle().Render(remote))
}

// Divider renders a horizontal line to separate phases.
// Uses thick box-drawing characters: ━━━━━━━━━━━━━━━━━
func (pd *PhaseDisplay) Divider() {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "\n%s\n\n", style.Render(strings.Repeat("━", DividerWidth)))
}

// CommandPrompt renders a command about to be run on the remote host.
// Shows: $ hassio homeassistant reload core_config
func (pd *PhaseDisplay) CommandPrompt(cmd string) {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "%s %s\n", style.Render("$"), cmd)
}

// Newline writes an empty line.
func (pd *PhaseDisplay) Newline() {
	fmt.Fprintln(pd.w)
}

// endProgress terminates a RenderProgress line.
func (pd *PhaseDisplay) endProgress() {
	fmt.Fprint(pd.w, "\r")
}

// formatDuration renders a duration as "(0.3s)", or "(1m05s)" past a minute.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("(%.1fs)", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("(%dm%02ds)", m, s)
}
