// Package monitor implements the terminal dashboard for field nodes.
//
// The dashboard shows the latest reading of one node at a time, with a card
// per metric, braille graphs of the accumulated history and keys that send
// commands to the selected node.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: selected node, last session.Frame, refresh and command state
//   - Update: keystrokes, refresh ticks, frames and command outcomes
//   - View: renders the current state to a string for display
//
// The model is a presentation consumer. A session.Session owns the history;
// each refresh runs session.Refresh in its own tea.Cmd and comes back as a
// frameMsg. Only one refresh is in flight at a time: requests made while one is
// running collapse into a single follow-up. Commands run through
// session.Dispatch in their own tea.Cmd, so a slow relay never delays a refresh.
//
// # Keyboard Shortcuts
//
//	←/→, Tab    - Select node
//	r           - Refresh now
//	a           - Toggle auto refresh
//	c, t        - LED color / fan threshold forms
//	n, f        - Toggle night mode / force send
//	o, x        - Force fan on / off
//	d           - Raw frame viewer
//	?           - Toggle help overlay
//	q, Ctrl+C   - Quit
package monitor
