package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/table"
	"github.com/stretchr/testify/assert"
)

func TestNewTable(t *testing.T) {
	columns := []TableColumn{{Title: "Time", Width: 10}, {Title: "temperature", Width: 12}}
	rows := []table.Row{{"12:00:01", "24.5"}, {"12:00:02", "24.6"}}

	view := NewTable(columns, rows).View()
	assert.Contains(t, view, "Time")
	assert.Contains(t, view, "temperature")
	assert.Contains(t, view, "24.5")
	assert.Contains(t, view, "24.6")
}

func TestRenderSimpleTable(t *testing.T) {
	assert.Empty(t, RenderSimpleTable([]TableColumn{{Title: "Node", Width: 8}}, nil))

	out := RenderSimpleTable(
		[]TableColumn{{Title: "Node", Width: 8}, {Title: "State", Width: 12}},
		[][]string{{"node1", "live"}, {"node2", "unreachable"}},
	)
	for _, want := range []string{"Node", "State", "node1", "live", "node2", "unreachable"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderKeyValues(t *testing.T) {
	out := stripStyles(RenderKeyValues([]KeyValue{
		{Key: "temperature", Value: "24.5"},
		{Key: "fan", Value: "ON"},
	}))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, []string{"  temperature  24.5", "  fan          ON"}, lines)
	assert.Empty(t, RenderKeyValues(nil))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
	assert.Equal(t, "°C ", padRight("°C", 3))
}
