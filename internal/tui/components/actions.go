package components

import (
	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// ActionEntry represents a single repair action for rendering.
type ActionEntry struct {
	Key      string
	Action   port.RepairAction
	Selected bool
}

// ActionList renders the actions of a repair prompt.
type ActionList struct {
	entries []ActionEntry
}

// NewActionList constructs an action list with the entry at cursor selected.
// Entries are keyed 1..9 in order.
func NewActionList(actions []port.RepairAction, cursor int) ActionList {
	entries := make([]ActionEntry, 0, len(actions))
	for i, act := range actions {
		key := ""
		if i < 9 {
			key = string(rune('1' + i))
		}
		entries = append(entries, ActionEntry{Key: key, Action: act, Selected: i == cursor})
	}
	return ActionList{entries: entries}
}

// Entries returns the ordered action entries.
func (a ActionList) Entries() []ActionEntry {
	clone := make([]ActionEntry, len(a.entries))
	copy(clone, a.entries)
	return clone
}
