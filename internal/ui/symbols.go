package ui

// Status symbols for command output.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolWarning  = "⚠"
	SymbolProgress = "◐"
)

// Node state symbols, matching the dashboard badges.
const (
	SymbolLive        = "◉"
	SymbolEmpty       = "◔"
	SymbolUnreachable = "◌"
)
