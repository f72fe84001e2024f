package monitor

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// Card layout constants
const (
	cardWidth      = 22 // outer width of a metric card, borders included
	cardInnerWidth = cardWidth - 4
)

// cardDividerStyle creates a subtle divider line with matching background
var cardDividerStyle = lipgloss.NewStyle().
	Foreground(ColorBorder).
	Background(ColorSurfaceBg)

// metricColors is the base color of each plotted metric.
var metricColors = map[telemetry.Metric]lipgloss.Color{
	telemetry.Temperature: ColorGraph,
	telemetry.Humidity:    ColorGraphAlt,
	telemetry.Luminosity:  ColorGraphLight,
	telemetry.Sound:       ColorGraphSound,
	telemetry.FanState:    ColorTextPrimary,
}

// renderCardDivider creates a subtle thin divider line
func renderCardDivider(width int) string {
	return cardDividerStyle.Render(strings.Repeat("─", width))
}

// renderCardLine renders a text line with proper background fill.
// Applies background to the entire line including content and padding.
func renderCardLine(content string, width int) string {
	contentWidth := lipgloss.Width(content)
	padding := ""
	if width > contentWidth {
		padding = strings.Repeat(" ", width-contentWidth)
	}
	lineStyle := lipgloss.NewStyle().Background(ColorSurfaceBg)
	return lineStyle.Render(content + padding)
}

// truncateWithEllipsis truncates a string to maxLen runes, adding ellipsis if needed.
func truncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// wrapWords splits text into lines no wider than width, breaking on spaces.
func wrapWords(text string, width int) []string {
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// errorParts splits a fetch error into the line to show and the suggestion, if any.
func errorParts(err error, summary string) (core string, suggestion string) {
	var zdErr *zderrors.Error
	if errors.As(err, &zdErr) {
		return zdErr.Short(), zdErr.Suggestion
	}
	return summary, ""
}

// metricValue renders a reading with the severity color applied.
func (m Model) metricValue(metric telemetry.Metric, v *float64) string {
	text := telemetry.FormatValue(metric, v)
	if v == nil {
		return LabelStyle.Render(text)
	}
	if metric == telemetry.FanState {
		if *v != 0 {
			return lipgloss.NewStyle().Foreground(ColorHealthy).Bold(true).Render(text)
		}
		return ValueStyle.Foreground(ColorTextMuted).Render(text)
	}
	color := MetricColor(*v, m.thresholds[metric], ColorTextPrimary)
	return ValueStyle.Foreground(color).Render(text)
}

// currentValue returns the reading to show for metric: the live snapshot when
// there is one, otherwise the newest stored point.
func (m Model) currentValue(metric telemetry.Metric) *float64 {
	if m.frame.Snapshot != nil {
		return m.frame.Snapshot.Value(metric)
	}
	if n := len(m.frame.Points); n > 0 {
		return m.frame.Points[n-1].Value(metric)
	}
	return nil
}

// seriesValues returns the stored readings of metric for the selected node, oldest first.
func (m Model) seriesValues(metric telemetry.Metric) []float64 {
	if m.session == nil {
		return nil
	}
	h := m.session.History()
	return h.Values(m.node, metric, h.Capacity())
}

// renderMetricCard renders one metric card: label, value and a mini sparkline.
func (m Model) renderMetricCard(metric telemetry.Metric) string {
	var lines []string

	lines = append(lines, renderCardLine(LabelStyle.Render(metric.Label()), cardInnerWidth))
	lines = append(lines, renderCardDivider(cardInnerWidth))
	lines = append(lines, renderCardLine(m.metricValue(metric, m.currentValue(metric)), cardInnerWidth))

	var trend string
	if metric == telemetry.FanState {
		if _, known := m.fanState(); !known {
			trend = LabelStyle.Render("not reported")
		}
	} else if values := m.seriesValues(metric); len(values) >= 2 {
		trend = lipgloss.NewStyle().Foreground(metricColors[metric]).Render(RenderMiniSparkline(values, cardInnerWidth))
	}
	lines = append(lines, renderCardLine(trend, cardInnerWidth))

	return CardStyle.Width(cardWidth - 2).Render(strings.Join(lines, "\n"))
}

// fanState reports the fan reading shown on the card.
func (m Model) fanState() (on, known bool) {
	v := m.currentValue(telemetry.FanState)
	if v == nil {
		return false, false
	}
	return *v != 0, true
}

// renderMetricCards lays out one card per metric, wrapping to the terminal width.
func (m Model) renderMetricCards() string {
	cards := make([]string, 0, len(telemetry.AllMetrics))
	for _, metric := range telemetry.AllMetrics {
		cards = append(cards, m.renderMetricCard(metric))
	}
	return m.layoutCards(cards)
}

// renderMinimalValues renders the readings as plain lines for narrow terminals.
func (m Model) renderMinimalValues() string {
	var lines []string
	for _, metric := range telemetry.AllMetrics {
		label := LabelStyle.Width(14).Render(metric.Label())
		lines = append(lines, label+m.metricValue(metric, m.currentValue(metric)))
	}
	return strings.Join(lines, "\n")
}

// layoutCards arranges cards in rows based on terminal width.
func (m Model) layoutCards(cards []string) string {
	if len(cards) == 0 {
		return ""
	}

	cardsPerRow := m.cardsPerRow()
	var rows []string
	for i := 0; i < len(cards); i += cardsPerRow {
		end := i + cardsPerRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// cardsPerRow returns how many cards fit side by side.
func (m Model) cardsPerRow() int {
	if m.width <= 0 {
		return len(telemetry.AllMetrics)
	}
	// Account for card margin
	n := m.width / (cardWidth + 1)
	if n < 1 {
		return 1
	}
	return n
}
