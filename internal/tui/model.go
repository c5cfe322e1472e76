package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// Model contains the Bubbletea state of a repair prompt.
type Model struct {
	prompt    port.RepairPrompt
	cursor    int
	timer     timer.Model
	timed     bool
	choice    port.RepairChoice
	finished  bool
	cancelled bool
}

// NewModel constructs a prompt model. A positive prompt timeout starts a
// countdown that dismisses the prompt when it runs out.
func NewModel(prompt port.RepairPrompt) Model {
	m := Model{prompt: prompt, choice: port.RepairDismissed}
	if prompt.Timeout > 0 {
		m.timer = timer.NewWithInterval(prompt.Timeout, time.Second)
		m.timed = true
	}
	return m
}

// Init starts the countdown, if any.
func (m Model) Init() tea.Cmd {
	if !m.timed {
		return nil
	}
	return m.timer.Init()
}

// Choice returns the selected action. It is RepairDismissed until the user
// confirms an action.
func (m Model) Choice() port.RepairChoice {
	return m.choice
}

// Finished reports whether the prompt has been answered, dismissed or
// cancelled.
func (m Model) Finished() bool {
	return m.finished
}

// Cancelled reports whether the user aborted the prompt.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Cursor returns the index of the highlighted action.
func (m Model) Cursor() int {
	return m.cursor
}

// Remaining returns the time left before the prompt dismisses itself.
func (m Model) Remaining() time.Duration {
	if !m.timed {
		return 0
	}
	return m.timer.Timeout
}
