// ABOUTME: Bubbletea model for the status TUI
// ABOUTME: Shows media clock, axis values and per-output loop statistics
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/motionsync/motionsync-go/internal/app"
	"github.com/motionsync/motionsync-go/pkg/clock"
	"github.com/motionsync/motionsync-go/pkg/media"
	"github.com/motionsync/motionsync-go/pkg/output"
)

// RefreshInterval is how often the model polls for status
const RefreshInterval = 250 * time.Millisecond

// Controller is what the TUI reads and drives
type Controller interface {
	Status() app.Status
	ToggleTarget(name string) error
	SendCommand(cmd media.Command) int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	tableStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	controller Controller
	status     app.Status
	selected   int
	message    string
	quitting   bool

	width  int
	height int
}

type tickMsg time.Time

// StatusMsg replaces the displayed status
type StatusMsg app.Status

// NewModel creates a new TUI model
func NewModel(controller Controller) Model {
	return Model{controller: controller}
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.controller != nil {
			m.applyStatus(m.controller.Status())
		}
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(app.Status(msg))
	}
	return m, nil
}

func (m *Model) applyStatus(st app.Status) {
	m.status = st
	if m.selected >= len(st.Targets) {
		m.selected = max(len(st.Targets)-1, 0)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.status.Targets)-1 {
			m.selected++
		}
	case "enter", " ":
		if m.controller == nil || len(m.status.Targets) == 0 {
			break
		}
		name := m.status.Targets[m.selected].Name
		if err := m.controller.ToggleTarget(name); err != nil {
			m.message = err.Error()
		} else {
			m.message = "toggled " + name
		}
	case "p":
		if m.controller == nil {
			break
		}
		cmd := "play"
		if m.status.Playing {
			cmd = "pause"
		}
		n := m.controller.SendCommand(media.Command{Command: cmd})
		m.message = fmt.Sprintf("sent %s to %d player(s)", cmd, n)
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("motionsync"))
	b.WriteString("\n\n")
	m.renderMedia(&b)
	b.WriteString("\n")
	m.renderAxes(&b)
	b.WriteString("\n")
	m.renderTargets(&b)
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(valueStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render("↑/↓ select  enter toggle output  p play/pause  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderMedia(b *strings.Builder) {
	st := m.status

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s", name)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	state := "paused"
	if st.Playing {
		state = "playing"
	}
	field("Source", st.Source)
	field("Media", fmt.Sprintf("%s / %s (%s)", formatSeconds(st.Position), formatSeconds(st.Duration), state))
	field("Clock", fmt.Sprintf("%s %s, drift %+.2f%%", qualityIcon(st.Quality), st.Quality, st.Drift*100))

	script := st.Script
	if script == "" {
		script = "(none)"
	}
	field("Script", truncate(script, 60))

	if len(st.Players) > 0 {
		names := make([]string, 0, len(st.Players))
		for _, p := range st.Players {
			names = append(names, p.Name)
		}
		field("Players", strings.Join(names, ", "))
	}
}

func (m Model) renderAxes(b *strings.Builder) {
	b.WriteString(tableStyle.Render("Axes"))
	b.WriteString("\n")
	if len(m.status.Axes) == 0 {
		b.WriteString(valueStyle.Render("  none configured"))
		b.WriteString("\n")
		return
	}
	for _, a := range m.status.Axes {
		fmt.Fprintf(b, "  %-3s %s %5.1f%%\n", a.Axis, renderBar(a.Value, 20), a.Value*100)
	}
}

func (m Model) renderTargets(b *strings.Builder) {
	b.WriteString(tableStyle.Render(fmt.Sprintf("Outputs (%d)", len(m.status.Targets))))
	b.WriteString("\n")
	if len(m.status.Targets) == 0 {
		b.WriteString(valueStyle.Render("  no outputs configured"))
		b.WriteString("\n")
		return
	}

	b.WriteString(faintStyle.Render(fmt.Sprintf("  %-14s %-10s %-18s %-13s %8s %8s %8s %7s",
		"NAME", "TRANSPORT", "LOOP", "STATE", "RATE", "JITTER", "ERROR", "SENT")))
	b.WriteString("\n")

	for i, t := range m.status.Targets {
		line := fmt.Sprintf("  %-14s %-10s %-18s %-13s %7.1fHz %8s %8s %7d",
			truncate(t.Name, 14),
			t.Transport,
			t.Discipline.String()+"/"+t.Execution.String(),
			stateLabel(t.State),
			t.Stats.Rate,
			formatMillis(t.Stats.Jitter),
			formatMillis(t.Stats.UpdateError),
			t.Stats.Sent)
		if i == m.selected {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if t.Err != nil {
			b.WriteString(errorStyle.Render("    " + truncate(t.Err.Error(), 70)))
			b.WriteString("\n")
		}
	}
}

// stateCaser is only used from View, which bubbletea calls on one goroutine
var stateCaser = cases.Title(language.Und)

func stateLabel(s output.State) string {
	name := stateCaser.String(s.String())
	switch s {
	case output.StateRunning:
		return "● " + name
	case output.StateConnecting, output.StateDisconnecting:
		return "◐ " + name
	default:
		return "○ " + name
	}
}

func qualityIcon(q clock.Quality) string {
	switch q {
	case clock.QualityGood:
		return "✓"
	case clock.QualityDegraded:
		return "⚠"
	default:
		return "✗"
	}
}

func formatSeconds(s float64) string {
	if s <= 0 {
		return "0:00.0"
	}
	minutes := int(s) / 60
	return fmt.Sprintf("%d:%04.1f", minutes, s-float64(minutes*60))
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func renderBar(value float64, width int) string {
	filled := int(min(max(value, 0), 1)*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
