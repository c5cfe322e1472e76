package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	if m.finished {
		return ""
	}

	sections := []string{titleStyle.Render(fmt.Sprintf("portgraph • %s", m.title()))}
	if cerr := m.prompt.Error; cerr != nil {
		sections = append(sections, errorStyle.Render(cerr.Error()))
		sections = append(sections, mutedStyle.Render("The new connection is already in place."))
	}

	entries := components.NewActionList(m.prompt.Actions, m.cursor).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("How do you want to continue?"), renderActions(entries))
	}

	if m.timed {
		sections = append(sections, sectionStyle.Render("Keeping the connection in"),
			components.NewCountdown(m.prompt.Timeout).View(m.timer.Timeout))
	}

	sections = append(sections, helpStyle.Render("↑/↓ select • enter confirm • esc keep as is • ctrl+c revert"))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func renderActions(entries []components.ActionEntry) string {
	var lines []string
	for _, entry := range entries {
		label := fmt.Sprintf("%s. %s", entry.Key, entry.Action.Label)
		if entry.Selected {
			lines = append(lines, selectedStyle.Render("> "+label))
		} else {
			lines = append(lines, itemStyle.Render("  "+label))
		}
		if strings.TrimSpace(entry.Action.Description) != "" {
			lines = append(lines, mutedStyle.Render("     "+entry.Action.Description))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if m.prompt.Error == nil {
		return "Repair connection"
	}
	switch m.prompt.Error.Kind {
	case port.SourceBusy:
		return "Output already connected"
	case port.DestinationBusy:
		return "Input already connected"
	default:
		return "Both ports already connected"
	}
}
