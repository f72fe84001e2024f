package monitor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/history"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sized applies a terminal size to m.
func sized(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

// withHistory refreshes node2 n times with increasing readings.
func withHistory(t *testing.T, n int) Model {
	t.Helper()
	fetcher := &stubFetcher{snaps: map[string]string{}}
	m := newTestModel(t, fetcher, nil)
	for i := 0; i < n; i++ {
		fetcher.mu.Lock()
		fetcher.snaps["node2"] = fmt.Sprintf(
			`{"temperature": %d, "humidity": %d, "luminosity": %d, "sound": %d, "fan_state": 1, "ts": %d}`,
			20+i, 40+i, 300+10*i, 50+i, 1700000000000+int64(i)*1000)
		fetcher.mu.Unlock()
		m = refresh(t, m)
	}
	return m
}

func TestRenderHeader(t *testing.T) {
	m := newTestModel(t, nil, nil)
	header := m.renderHeader()

	assert.Contains(t, header, "zonedash")
	for _, n := range []string{"node1", "node2", "node3"} {
		assert.Contains(t, header, n)
	}
	assert.Contains(t, header, "auto 1s")

	m.auto = false
	assert.Contains(t, m.renderHeader(), "manual")
}

func TestRenderStateLine(t *testing.T) {
	t.Run("before first frame", func(t *testing.T) {
		m := newTestModel(t, nil, nil)
		line := m.renderStateLine()
		assert.Contains(t, line, "connecting")
		assert.Contains(t, line, "refreshing")
	})

	t.Run("live shows device time", func(t *testing.T) {
		m := refresh(t, newTestModel(t, nil, nil))
		line := m.renderStateLine()
		assert.Contains(t, line, "live")
		assert.Contains(t, line, time.UnixMilli(1700000001000).Local().Format("2006-01-02 15:04:05"))
	})

	t.Run("empty node", func(t *testing.T) {
		m := newTestModel(t, &stubFetcher{}, nil)
		m = refresh(t, m)
		assert.Contains(t, m.renderStateLine(), "no data")
	})

	t.Run("unreachable shows error and suggestion", func(t *testing.T) {
		fetcher := &stubFetcher{err: zderrors.New(zderrors.ErrFetch, "Store unreachable", "Check store.url and your network")}
		m := sized(t, newTestModel(t, fetcher, nil), 100, 40)
		m = refresh(t, m)

		line := m.renderStateLine()
		assert.Contains(t, line, "unreachable")
		assert.Contains(t, line, "Store unreachable")
		assert.Contains(t, line, "Check store.url and your network")
	})
}

func TestRenderDashboard_Cards(t *testing.T) {
	m := sized(t, refresh(t, newTestModel(t, nil, nil)), 140, 50)
	out := m.View()

	for _, metric := range telemetry.AllMetrics {
		assert.Contains(t, out, metric.Label())
	}
	assert.Contains(t, out, "24.5")
	assert.Contains(t, out, "ON")
	assert.Contains(t, out, "Collecting history (1/2 points)")
}

func TestRenderDashboard_GraphsAfterTwoPoints(t *testing.T) {
	m := sized(t, withHistory(t, 5), 140, 50)
	out := m.View()

	assert.Contains(t, out, "Temperature · Humidity")
	assert.Contains(t, out, "Luminosity · Sound")
	assert.Contains(t, out, "5 pts")
	assert.NotContains(t, out, "Collecting history")
}

func TestRenderGraphs_Stacked(t *testing.T) {
	m := sized(t, withHistory(t, 3), 90, 50)
	graphs := m.renderGraphs()

	lines := strings.Split(graphs, "\n")
	titles := 0
	for _, l := range lines {
		if strings.Contains(l, "╭─") {
			titles++
		}
	}
	assert.Equal(t, 2, titles)
}

func TestRenderGraphPanel_WaitingForMetric(t *testing.T) {
	// Readings without sound never produce a sound graph.
	fetcher := &stubFetcher{snaps: map[string]string{"node2": `{"temperature": 20, "luminosity": 10}`}}
	m := newTestModel(t, fetcher, nil)
	m = refresh(t, m)
	m = refresh(t, m)

	panel := m.renderGraphPanel("Luminosity · Sound", graphPanels[1].metrics, 60)
	assert.Contains(t, panel, "no readings")
	assert.Contains(t, panel, "waiting for readings")
}

func TestRenderDashboard_Minimal(t *testing.T) {
	m := sized(t, refresh(t, newTestModel(t, nil, nil)), 60, 30)
	out := m.View()

	assert.Contains(t, out, "Temp (°C)")
	assert.NotContains(t, out, "╭─", "no graph panels on narrow terminals")
}

func TestRenderDashboard_Help(t *testing.T) {
	m := sized(t, newTestModel(t, nil, nil), 100, 40)
	m, _ = press(t, m, "?")
	out := m.View()

	assert.Contains(t, out, "Keyboard Shortcuts")
	assert.Contains(t, out, "Set fan threshold")

	m, _ = press(t, m, "esc")
	assert.False(t, m.showHelp)
}

func TestRenderDashboard_Form(t *testing.T) {
	m := sized(t, newTestModel(t, nil, nil), 100, 40)
	m, _ = press(t, m, "c")
	out := m.View()

	assert.Contains(t, out, "Red")
	assert.Contains(t, out, "esc cancel")
}

func TestRenderFooter(t *testing.T) {
	m := newTestModel(t, nil, nil)
	footer := m.renderFooter()
	assert.Contains(t, footer, "a auto:on")
	assert.Contains(t, footer, "n night:off")
	assert.Contains(t, footer, "q quit")

	m.viewMode = ViewRaw
	assert.Contains(t, m.renderFooter(), "scroll")
}

func TestRenderStatusLine(t *testing.T) {
	m := newTestModel(t, nil, nil)
	assert.Empty(t, m.renderStatusLine())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	updated, _ := m.Update(outcomeMsg{node: "node2", cmd: relay.CmdSetRGB, outcome: relay.Outcome{Success: false, Message: "HTTP 500: boom"}, at: at})
	m = updated.(Model)

	line := m.renderStatusLine()
	assert.Contains(t, line, "✗")
	assert.Contains(t, line, "set_rgb → node2: HTTP 500: boom")
	assert.Contains(t, line, "03:04:05")
}

func TestRawView(t *testing.T) {
	m := sized(t, newTestModel(t, nil, nil), 120, 60)
	assert.Contains(t, m.rawContent(), "Waiting for the first refresh")

	m = refresh(t, m)
	m, _ = press(t, m, "d")
	require.Equal(t, ViewRaw, m.viewMode)

	content := m.rawContent()
	assert.Contains(t, content, "state      live")
	assert.Contains(t, content, `"temperature": 24.5`)
	assert.Contains(t, content, "fan_state")
	assert.Contains(t, m.View(), "node")

	// Keys other than close scroll the viewer instead of acting on the dashboard.
	m, _ = press(t, m, "f")
	assert.Equal(t, 0, m.sending)

	m, _ = press(t, m, "d")
	assert.Equal(t, ViewDashboard, m.viewMode)
}

func TestRenderPointRows(t *testing.T) {
	assert.Contains(t, renderPointRows(nil), "(none)")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var points []history.Point
	for i := 0; i < 25; i++ {
		temp := float64(20 + i)
		points = append(points, history.Point{Time: base.Add(time.Duration(i) * time.Second), Temperature: &temp})
	}

	rows := strings.Split(renderPointRows(points), "\n")
	assert.Len(t, rows, rawPointRows+1, "header plus the newest points")
	assert.Contains(t, rows[0], "temperature")
	assert.Contains(t, rows[1], "25", "oldest listed point is the sixth")
	assert.Contains(t, rows[len(rows)-1], "44")
	assert.Contains(t, rows[len(rows)-1], "—", "absent readings render as a dash")
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "just now", formatAge(0))
	assert.Equal(t, "1s ago", formatAge(time.Second))
	assert.Equal(t, "42s ago", formatAge(42*time.Second))
	assert.Equal(t, "3m ago", formatAge(3*time.Minute+5*time.Second))
}
