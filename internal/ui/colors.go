package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette uses the basic ANSI colors so output looks the same over SSH,
// in CI logs and in any terminal theme.

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// SuccessStyle renders text in the success color.
func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }

// ErrorStyle renders text in the error color.
func ErrorStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorError) }

// WarningStyle renders text in the warning color.
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }

// InfoStyle renders text in the info color.
func InfoStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorInfo) }

// MutedStyle renders secondary text.
func MutedStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorMuted) }

// DisableColors switches all rendering to plain text (--no-color, NO_COLOR).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// PrintWarning writes a highlighted warning line to stderr.
func PrintWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}
