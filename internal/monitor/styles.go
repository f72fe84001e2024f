package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/zonedash/internal/session"
)

// Dashboard color palette - Gen Z Electric Synthwave
const (
	// Background colors (glassmorphism-inspired)
	ColorDarkBg    = lipgloss.Color("#0A0A0F") // Deep void
	ColorSurfaceBg = lipgloss.Color("#12121A") // Dark surface
	ColorBorder    = lipgloss.Color("#2A2A4A") // Glass border (purple tint)

	// Semantic colors for metrics - neon style
	ColorHealthy  = lipgloss.Color("#39FF14") // Neon green
	ColorWarning  = lipgloss.Color("#FFAA00") // Electric amber
	ColorCritical = lipgloss.Color("#FF0055") // Hot red-pink

	// Text colors
	ColorTextPrimary   = lipgloss.Color("#FFFFFF") // Pure white
	ColorTextSecondary = lipgloss.Color("#B4B4D0") // Lavender gray
	ColorTextMuted     = lipgloss.Color("#6B6B8D") // Purple-gray

	// Accent colors - neon pink primary, purple secondary
	ColorAccent    = lipgloss.Color("#FF2E97") // Neon pink
	ColorAccentDim = lipgloss.Color("#BF40FF") // Neon purple

	// Graph colors, one per plotted sensor
	ColorGraph      = lipgloss.Color("#00FFFF") // Neon cyan
	ColorGraphAlt   = lipgloss.Color("#BF40FF") // Neon purple
	ColorGraphLight = lipgloss.Color("#FFE066") // Warm yellow
	ColorGraphSound = lipgloss.Color("#FF2E97") // Neon pink
)

// Base styles for the dashboard
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	// Card styles - no background set here, each line handles its own
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1).
			MarginBottom(1)

	// Node tabs
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	TabSelectedStyle = lipgloss.NewStyle().
				Foreground(ColorDarkBg).
				Background(ColorAccent).
				Bold(true).
				Padding(0, 1)

	// Text styles
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	// State badge styles
	StateLiveStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy)

	StateEmptyStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StateUnreachableStyle = lipgloss.NewStyle().
				Foreground(ColorCritical)

	StatePendingStyle = lipgloss.NewStyle().
				Foreground(ColorTextSecondary)

	// Outcome line styles
	OutcomeOKStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy)

	OutcomeFailStyle = lipgloss.NewStyle().
				Foreground(ColorCritical)
)

// State indicator characters - cyber glyphs
const (
	StatePendingGlyph     = "◐"
	StateLiveGlyph        = "◉"
	StateEmptyGlyph       = "◔"
	StateUnreachableGlyph = "◌"
)

// Thresholds colors a reading by severity. A zero level is disabled.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Enabled reports whether any severity level is set.
func (t Thresholds) Enabled() bool {
	return t.Warning > 0 || t.Critical > 0
}

// MetricColor returns the severity color for value, or base when no level applies.
func MetricColor(value float64, t Thresholds, base lipgloss.Color) lipgloss.Color {
	switch {
	case t.Critical > 0 && value >= t.Critical:
		return ColorCritical
	case t.Warning > 0 && value >= t.Warning:
		return ColorWarning
	case t.Enabled():
		return ColorHealthy
	default:
		return base
	}
}

// stateBadge returns the glyph, label and style for a frame state.
// An empty state means no refresh has completed yet.
func stateBadge(state session.State) (string, string, lipgloss.Style) {
	switch state {
	case session.StateLive:
		return StateLiveGlyph, "live", StateLiveStyle
	case session.StateEmpty:
		return StateEmptyGlyph, "no data", StateEmptyStyle
	case session.StateUnreachable:
		return StateUnreachableGlyph, "unreachable", StateUnreachableStyle
	default:
		return StatePendingGlyph, "connecting", StatePendingStyle
	}
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	// Left: "╭─ " + title + " ", right: " " + value + " ╮"
	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}
	middle := strings.Repeat("─", fillWidth)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
// Format: ╰────────────────────────────────────────────────────╯
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	middle := strings.Repeat("─", width-2)
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + middle + "╯")
}

// SectionContentLine renders a content line with left and right borders, padded to width.
// Format: │ content                                              │
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)

	// "│ " on the left and " │" on the right
	padding := width - 4 - lipgloss.Width(content)
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}
