package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

func TestCountdownView(t *testing.T) {
	t.Parallel()

	t.Run("renders nothing without a timeout", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, NewCountdown(0).View(time.Second))
	})

	t.Run("rounds remaining seconds up", func(t *testing.T) {
		t.Parallel()
		view := NewCountdown(10 * time.Second).View(2500 * time.Millisecond)
		require.Contains(t, view, "3s left")
	})

	t.Run("clamps negative remaining time", func(t *testing.T) {
		t.Parallel()
		view := NewCountdown(10 * time.Second).View(-time.Second)
		require.Contains(t, view, "0s left")
	})

	t.Run("bar takes up space", func(t *testing.T) {
		t.Parallel()
		view := NewCountdown(time.Minute).View(30 * time.Second)
		require.True(t, len(strings.TrimSpace(view)) > len("30s left"),
			"expected view to contain a bar in addition to the label")
	})
}

func TestActionList(t *testing.T) {
	t.Parallel()

	actions := []port.RepairAction{
		{Choice: port.RepairKeep, Label: "Keep"},
		{Choice: port.RepairRevert, Label: "Revert"},
	}

	list := NewActionList(actions, 1)
	entries := list.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "1", entries[0].Key)
	require.Equal(t, "2", entries[1].Key)
	require.False(t, entries[0].Selected)
	require.True(t, entries[1].Selected)

	entries[0].Selected = true
	require.False(t, list.Entries()[0].Selected, "entries are copied")
}

func TestDiagnosticsView(t *testing.T) {
	t.Parallel()

	t.Run("renders clean state", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "✓ no metadata problems", NewDiagnostics(DiagnosticsData{}).View())
	})

	t.Run("renders errors and fixes", func(t *testing.T) {
		t.Parallel()
		errs := []*port.MetaDataError{
			port.NewMetaDataError(nil, port.SeverityError, port.CodeInputMissing, "input is missing"),
			port.NewMetaDataError(nil, port.SeverityWarning, port.CodeNeedsConversion, "int needs conversion"),
			nil,
		}
		view := NewDiagnostics(DiagnosticsData{
			Errors: errs,
			Fixes:  []port.PortQuickFix{{Fix: port.QuickFix{Name: "Connect to a.out", Rating: 2}, Error: errs[0]}},
		}).View()

		require.Contains(t, view, "Errors: 1, warnings: 1, information: 0")
		require.Contains(t, view, "✗ error: input is missing")
		require.Contains(t, view, "! warning: int needs conversion")
		require.Contains(t, view, "• Connect to a.out (rating 2)")
	})
}
