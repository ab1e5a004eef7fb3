package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorTeal  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorMuted = lipgloss.Color("240")
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorTeal) // manifest headings
	StyleDim     = lipgloss.NewStyle().Foreground(colorMuted)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorTeal)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorAmber)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorTeal)
	styleLocation    = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)

	styleDiffAdd    = lipgloss.NewStyle().Foreground(colorGreen)
	styleDiffRemove = lipgloss.NewStyle().Foreground(colorRed)
	styleDiffHunk   = lipgloss.NewStyle().Foreground(colorTeal)
)

// kindStyles colors each lint kind in the report. Redundancies are
// warnings, unused dependencies and conflicts are errors.
var kindStyles = map[lint.Kind]lipgloss.Style{
	lint.KindRedundantFeature:         StyleWarning,
	lint.KindRedundantDefaultFeatures: StyleWarning,
	lint.KindUnusedDependency:         lipgloss.NewStyle().Foreground(colorRed),
	lint.KindFixConflict:              lipgloss.NewStyle().Bold(true).Foreground(colorRed),
}

// =============================================================================
// Status lines
// =============================================================================

// status is a leading icon with its color.
type status struct {
	icon  string
	style lipgloss.Style
}

var (
	statusSuccess = status{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	statusError   = status{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	statusWarning = status{"!", lipgloss.NewStyle().Foreground(colorAmber)}
	statusInfo    = status{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

func (s status) println(w io.Writer, msg string) {
	fmt.Fprintln(w, s.style.Render(s.icon)+" "+msg)
}

func printSuccess(w io.Writer, format string, args ...any) {
	statusSuccess.println(w, fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	statusError.println(w, fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	statusWarning.println(w, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	statusInfo.println(w, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, muted line under a status line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the heading of a manifest's block of diagnostics.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, StyleDim.Render("→")+" "+StyleTitle.Render(path))
}

// printHint prints a suggestion ending in a flag to use.
func printHint(w io.Writer, description, flag string) {
	fmt.Fprintln(w, StyleDim.Render("Hint:")+" "+description+" "+styleCommand.Render(flag))
}

func printNewline(w io.Writer) {
	fmt.Fprintln(w)
}
