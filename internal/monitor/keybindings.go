package monitor

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/zonedash/internal/relay"
)

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewDashboard ViewMode = iota
	ViewRaw
	ViewForm
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyAutoRefresh = "a"
	KeyNodePrev    = "left"
	KeyNodePrevH   = "h"
	KeyNodeNext    = "right"
	KeyNodeNextL   = "l"
	KeyNodeCycle   = "tab"
	KeyNodeBack    = "shift+tab"
	KeyRGB         = "c"
	KeyNightMode   = "n"
	KeyForceSend   = "f"
	KeyThreshold   = "t"
	KeyFanOn       = "o"
	KeyFanOff      = "x"
	KeyRawFrame    = "d"
	KeyClose       = "esc"
	KeyToggleHelp  = "?"
)

// HandleKeyMsg processes keyboard input and returns updated model state and command.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help toggle takes priority
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	// If help is showing, Esc closes it
	if m.showHelp && key == KeyClose {
		m.showHelp = false
		return true, nil
	}

	// Raw view: Esc or d returns to the dashboard, other keys scroll
	if m.viewMode == ViewRaw {
		switch key {
		case KeyClose, KeyRawFrame:
			m.viewMode = ViewDashboard
			return true, nil
		case KeyQuit, KeyQuitAlt:
			m.quitting = true
			return true, tea.Quit
		}
		return false, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		return true, m.startRefresh()

	case KeyAutoRefresh:
		m.auto = !m.auto
		// A new id retires any tick still in flight from the previous run.
		m.tickID++
		if m.auto {
			return true, tea.Batch(m.tickCmd(), m.startRefresh())
		}
		return true, nil

	case KeyNodePrev, KeyNodePrevH, KeyNodeBack:
		return true, m.selectNode(m.nodes.Prev(m.node))

	case KeyNodeNext, KeyNodeNextL, KeyNodeCycle:
		return true, m.selectNode(m.nodes.Next(m.node))

	case KeyRGB:
		return true, m.openForm(formRGB)

	case KeyThreshold:
		return true, m.openForm(formThreshold)

	case KeyNightMode:
		m.nightMode = !m.nightMode
		return true, m.dispatch(relay.NightMode(m.nightMode))

	case KeyForceSend:
		return true, m.dispatch(relay.ForceSend())

	case KeyFanOn:
		return true, m.dispatch(relay.FanForce(true))

	case KeyFanOff:
		return true, m.dispatch(relay.FanForce(false))

	case KeyRawFrame:
		m.viewMode = ViewRaw
		m.updateRawViewportContent()
		m.rawViewport.GotoTop()
		return true, nil
	}

	return false, nil
}
