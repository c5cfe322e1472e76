package tui

import (
	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.finished {
		return m, nil
	}

	switch msg := msg.(type) {
	case timer.TickMsg, timer.StartStopMsg:
		if !m.timed {
			return m, nil
		}
		var cmd tea.Cmd
		m.timer, cmd = m.timer.Update(msg)
		return m, cmd
	case timer.TimeoutMsg:
		if !m.timed || msg.ID != m.timer.ID() {
			return m, nil
		}
		return m.finish(port.RepairDismissed)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c":
		m.cancelled = true
		m.finished = true
		return m, tea.Quit
	case "esc", "q":
		return m.finish(port.RepairDismissed)
	case "up", "k", "shift+tab":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(m.prompt.Actions)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.prompt.Actions) == 0 {
			return m.finish(port.RepairDismissed)
		}
		return m.finish(m.prompt.Actions[m.cursor].Choice)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(m.prompt.Actions) {
				m.cursor = idx
				return m.finish(m.prompt.Actions[idx].Choice)
			}
		}
	}
	return m, nil
}

func (m Model) finish(choice port.RepairChoice) (tea.Model, tea.Cmd) {
	m.choice = choice
	m.finished = true
	return m, tea.Quit
}
