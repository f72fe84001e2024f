package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// Graph layout constants
const (
	graphHeight   = 3 // braille rows per metric
	minGraphWidth = 30
	minPoints     = 2 // points needed before a line can be drawn
)

// graphPanels groups the plotted metrics two per panel.
var graphPanels = []struct {
	title   string
	metrics [2]telemetry.Metric
}{
	{"Temperature · Humidity", [2]telemetry.Metric{telemetry.Temperature, telemetry.Humidity}},
	{"Luminosity · Sound", [2]telemetry.Metric{telemetry.Luminosity, telemetry.Sound}},
}

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.viewMode {
	case ViewRaw:
		b.WriteString(m.renderRawView())
	case ViewForm:
		b.WriteString(m.renderStateLine())
		b.WriteString("\n\n")
		if m.form != nil {
			b.WriteString(m.form.View())
		}
	default:
		b.WriteString(m.renderStateLine())
		b.WriteString("\n\n")
		if m.LayoutMode() == LayoutMinimal {
			b.WriteString(m.renderMinimalValues())
		} else {
			b.WriteString(m.renderMetricCards())
			b.WriteString("\n")
			b.WriteString(m.renderGraphs())
		}
		if line := m.renderStatusLine(); line != "" {
			b.WriteString("\n\n")
			b.WriteString(line)
		}
	}

	if m.ShowFooter() {
		b.WriteString("\n\n")
		b.WriteString(m.renderFooter())
	}

	return b.String()
}

// renderHeader renders the title, node tabs and refresh mode.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("zonedash")

	tabs := make([]string, 0, len(m.nodes))
	for _, node := range m.nodes {
		if node == m.node {
			tabs = append(tabs, TabSelectedStyle.Render(node))
		} else {
			tabs = append(tabs, TabStyle.Render(node))
		}
	}

	mode := "auto " + m.interval.String()
	if !m.auto {
		mode = "manual"
	}
	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + mode)

	return HeaderStyle.Render(title+"  ") + strings.Join(tabs, "") + stats
}

// renderStateLine renders the state badge, last update time and any fetch error.
func (m Model) renderStateLine() string {
	state := session.State("")
	if m.haveFrame {
		state = m.frame.State
	}
	glyph, label, style := stateBadge(state)
	badge := style.Render(glyph + " " + label)

	var parts []string
	parts = append(parts, badge)
	if ts := m.lastUpdateText(); ts != "" {
		parts = append(parts, LabelStyle.Render("last update "+ts))
	}
	if m.haveFrame {
		parts = append(parts, LabelStyle.Render("fetched "+formatAge(time.Since(m.frame.FetchedAt))))
	}
	if m.refreshing {
		parts = append(parts, LabelStyle.Render("refreshing…"))
	}
	line := strings.Join(parts, LabelStyle.Render("  ·  "))

	if state != session.StateUnreachable {
		return line
	}

	width := m.width - 4
	if width < 20 {
		width = 60
	}
	core, suggestion := errorParts(m.frame.Err, m.frame.Error)
	lines := []string{line}
	if core != "" {
		lines = append(lines, StateUnreachableStyle.Render("  "+truncateWithEllipsis(core, width)))
	}
	for _, l := range wrapWords(suggestion, width) {
		lines = append(lines, LabelStyle.Render("  "+l))
	}
	if n := len(m.frame.Points); n > 0 {
		lines = append(lines, LabelStyle.Render(fmt.Sprintf("  showing %d stored points", n)))
	}
	return strings.Join(lines, "\n")
}

// lastUpdateText formats the device timestamp of the newest reading.
func (m Model) lastUpdateText() string {
	var ts time.Time
	var ok bool
	if m.frame.Snapshot != nil {
		ts, ok = m.frame.Snapshot.Time()
	} else if n := len(m.frame.Points); n > 0 {
		ts, ok = m.frame.Points[n-1].Time, true
	}
	if !ok || ts.IsZero() {
		if m.haveFrame && m.frame.State == session.StateLive {
			return "—"
		}
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

// formatAge renders a duration since an event.
func formatAge(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs <= 0:
		return "just now"
	case secs == 1:
		return "1s ago"
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	default:
		return fmt.Sprintf("%dm ago", secs/60)
	}
}

// renderGraphs renders the two graph panels, side by side on wide terminals.
func (m Model) renderGraphs() string {
	count := 0
	if m.session != nil {
		count = m.session.History().Count(m.node)
	}
	if count < minPoints {
		return LabelStyle.Render(fmt.Sprintf("Collecting history (%d/%d points)…", count, minPoints))
	}

	width := m.width
	if width <= 0 {
		width = BreakpointWide
	}

	if m.LayoutMode() == LayoutWide {
		panelWidth := (width - 1) / 2
		left := m.renderGraphPanel(graphPanels[0].title, graphPanels[0].metrics, panelWidth)
		right := m.renderGraphPanel(graphPanels[1].title, graphPanels[1].metrics, panelWidth)
		return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	}

	panels := make([]string, 0, len(graphPanels))
	for _, p := range graphPanels {
		panels = append(panels, m.renderGraphPanel(p.title, p.metrics, width))
	}
	return strings.Join(panels, "\n")
}

// renderGraphPanel renders one bordered panel holding a braille graph per metric.
func (m Model) renderGraphPanel(title string, metrics [2]telemetry.Metric, width int) string {
	if width < minGraphWidth {
		width = minGraphWidth
	}
	graphWidth := width - 4

	count := 0
	if m.session != nil {
		count = m.session.History().Count(m.node)
	}

	var lines []string
	lines = append(lines, SectionHeader(title, fmt.Sprintf("%d pts", count), width))

	for _, metric := range metrics {
		values := m.seriesValues(metric)
		color := metricColors[metric]

		label := lipgloss.NewStyle().Foreground(color).Bold(true).Render(metric.Label())
		summary := LabelStyle.Render("no readings")
		if len(values) > 0 {
			lo, hi := findMinMax(values)
			summary = m.metricValue(metric, &values[len(values)-1]) +
				LabelStyle.Render(fmt.Sprintf("  min %g  max %g", lo, hi))
		}
		lines = append(lines, SectionContentLine(label+"  "+summary, width))

		if len(values) < minPoints {
			lines = append(lines, SectionContentLine(LabelStyle.Render("waiting for readings…"), width))
			continue
		}
		graph := RenderBrailleSparkline(values, graphWidth, graphHeight, color, m.thresholds[metric])
		for _, gl := range strings.Split(graph, "\n") {
			lines = append(lines, SectionContentLine(gl, width))
		}
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderStatusLine renders the latest command outcome.
func (m Model) renderStatusLine() string {
	if m.status.text == "" {
		return ""
	}
	style := OutcomeOKStyle
	glyph := "✓"
	if !m.status.success {
		style = OutcomeFailStyle
		glyph = "✗"
	}
	if m.sending > 0 && m.status.at.IsZero() {
		return LabelStyle.Render(m.status.text)
	}
	text := style.Render(glyph+" "+m.status.text) + LabelStyle.Render("  "+m.status.at.Format("15:04:05"))
	return text
}

// renderFooter renders the keyboard hints.
func (m Model) renderFooter() string {
	var hints []string
	switch m.viewMode {
	case ViewRaw:
		hints = []string{"↑/↓ scroll", "d/esc back", "q quit"}
	case ViewForm:
		hints = []string{"enter next/submit", "esc cancel"}
	default:
		auto := "a auto:off"
		if m.auto {
			auto = "a auto:on"
		}
		night := "n night:off"
		if m.nightMode {
			night = "n night:on"
		}
		hints = []string{"←/→ node", "r refresh", auto, "c color", night, "f send", "t fan", "o/x fan on/off", "d raw", "? help", "q quit"}
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}
