// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the status display
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// New creates the program; call Run on it to take over the terminal
func New(controller Controller) *tea.Program {
	return tea.NewProgram(NewModel(controller), tea.WithAltScreen())
}
