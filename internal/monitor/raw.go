package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/zonedash/internal/history"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// rawPointRows is how many of the newest points the raw view lists.
const rawPointRows = 20

var rawSectionStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// renderRawView renders the scrollable raw frame viewer.
func (m Model) renderRawView() string {
	if !m.viewportReady {
		return m.rawContent()
	}
	return m.rawViewport.View()
}

// updateRawViewportContent refreshes the viewer with the current frame.
func (m *Model) updateRawViewportContent() {
	if !m.viewportReady {
		return
	}
	m.rawViewport.SetContent(m.rawContent())
}

// rawContent lists the frame metadata, the store's JSON as received and the
// newest stored points.
func (m Model) rawContent() string {
	if !m.haveFrame {
		return LabelStyle.Render("Waiting for the first refresh...")
	}

	var b strings.Builder
	f := m.frame

	meta := []string{
		fmt.Sprintf("node       %s", f.Node),
		fmt.Sprintf("state      %s", f.State),
		fmt.Sprintf("fetched at %s", f.FetchedAt.Format("2006-01-02 15:04:05.000")),
		fmt.Sprintf("latency    %s", f.Latency.Round(time.Millisecond)),
		fmt.Sprintf("points     %d", len(f.Points)),
	}
	if f.Error != "" {
		meta = append(meta, "error      "+f.Error)
	}
	b.WriteString(rawSectionStyle.Render(SectionTitle("Frame") + "\n" + strings.Join(meta, "\n")))
	b.WriteString("\n")

	body := LabelStyle.Render("(no snapshot)")
	if f.Snapshot != nil && len(f.Snapshot.Raw) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, f.Snapshot.Raw, "", "  "); err == nil {
			body = pretty.String()
		} else {
			body = string(f.Snapshot.Raw)
		}
	}
	b.WriteString(rawSectionStyle.Render(SectionTitle("Snapshot") + "\n" + body))
	b.WriteString("\n")

	b.WriteString(rawSectionStyle.Render(SectionTitle("Points") + "\n" + renderPointRows(m.frame.Points)))
	return b.String()
}

// SectionTitle renders a bold accent title for raw view sections.
func SectionTitle(title string) string {
	return lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(title)
}

// renderPointRows renders the newest points as a fixed-width table.
func renderPointRows(points []history.Point) string {
	if len(points) == 0 {
		return LabelStyle.Render("(none)")
	}
	if len(points) > rawPointRows {
		points = points[len(points)-rawPointRows:]
	}

	header := fmt.Sprintf("%-19s", "time")
	for _, metric := range telemetry.AllMetrics {
		header += fmt.Sprintf(" %12s", metric.Key())
	}
	rows := []string{LabelStyle.Render(header)}
	for _, p := range points {
		row := fmt.Sprintf("%-19s", p.Time.Local().Format("2006-01-02 15:04:05"))
		for _, metric := range telemetry.AllMetrics {
			row += fmt.Sprintf(" %12s", telemetry.FormatValue(metric, p.Value(metric)))
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}
