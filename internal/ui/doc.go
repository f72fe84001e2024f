// Package ui styles zonedash's plain command output: colors, status symbols,
// a spinner for one-shot network calls and simple tables for readings.
//
// The full-screen dashboard lives in internal/monitor and has its own styles.
// Use DisableColors for --no-color.
package ui
