package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorNeonPink, ColorNeonCyan, ColorNeonPurple, ColorNeonGreen, ColorNeonAmber,
		ColorSuccess, ColorError, ColorWarning, ColorInfo, ColorPrimary, ColorMuted,
	}

	for _, color := range colors {
		s := string(color)
		assert.True(t, len(s) == 7 && s[0] == '#', "color should be #RRGGBB: %s", s)
	}
}

func TestGradientColors(t *testing.T) {
	assert.Len(t, GradientColors, 4)
}

func TestStyles(t *testing.T) {
	styles := map[string]lipgloss.Style{
		"success": SuccessStyle(),
		"error":   ErrorStyle(),
		"warning": WarningStyle(),
		"info":    InfoStyle(),
		"muted":   MutedStyle(),
	}
	for name, style := range styles {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, style.Render(name), name)
		})
	}
}

func TestPrintWarning(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	PrintWarning("relay.url is not set")

	w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	assert.Contains(t, buf.String(), "relay.url is not set")
	assert.Contains(t, buf.String(), SymbolWarning)
}

func TestDisableColors(t *testing.T) {
	DisableColors()
	assert.Equal(t, "plain", SuccessStyle().Render("plain"))
}
