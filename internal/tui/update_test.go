package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
)

// sourceBusy connects a.out to b.in and returns the refusal of a.out -> c.in.
func sourceBusy(t *testing.T) (*stage.Process, *port.CannotConnectError) {
	t.Helper()
	p := stage.NewProcess("tui", nil)
	ports := make(map[string]*port.InputPort)
	a, err := p.AddStage("a")
	require.NoError(t, err)
	out, err := a.Outputs().CreatePort("out")
	require.NoError(t, err)
	for _, name := range []string{"b", "c"} {
		s, err := p.AddStage(name)
		require.NoError(t, err)
		in, err := s.Inputs().CreatePort("in")
		require.NoError(t, err)
		ports[name] = in
	}
	require.NoError(t, out.ConnectTo(ports["b"]))

	var cerr *port.CannotConnectError
	require.True(t, errors.As(out.ConnectTo(ports["c"]), &cerr))
	return p, cerr
}

func testPrompt(t *testing.T, timeout time.Duration) port.RepairPrompt {
	t.Helper()
	_, cerr := sourceBusy(t)
	return port.RepairPrompt{
		Error:   cerr,
		Timeout: timeout,
		Actions: []port.RepairAction{
			{Choice: port.RepairKeep, Label: "Keep new connection"},
			{Choice: port.RepairInsertFanOut, Label: "Insert fan-out"},
			{Choice: port.RepairRevert, Label: "Revert", Description: "Restore the connections"},
		},
	}
}

func requireQuit(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok, "expected the program to quit")
}

func TestUpdateMovesCursor(t *testing.T) {
	m := NewModel(testPrompt(t, 0))

	steps := []struct {
		key  tea.KeyMsg
		want int
	}{
		{key: tea.KeyMsg{Type: tea.KeyUp}, want: 0},
		{key: tea.KeyMsg{Type: tea.KeyDown}, want: 1},
		{key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, want: 2},
		{key: tea.KeyMsg{Type: tea.KeyDown}, want: 2},
		{key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}, want: 1},
	}
	for _, step := range steps {
		updated, cmd := m.Update(step.key)
		require.Nil(t, cmd)
		m = updated.(Model)
		require.Equal(t, step.want, m.Cursor(), "after %s", step.key)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	requireQuit(t, cmd)
	m = updated.(Model)
	require.True(t, m.Finished())
	require.Equal(t, port.RepairInsertFanOut, m.Choice())
}

func TestUpdateHandlesShortcuts(t *testing.T) {
	cases := []struct {
		name      string
		key       tea.KeyMsg
		want      port.RepairChoice
		finished  bool
		cancelled bool
	}{
		{name: "number selects", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")}, want: port.RepairRevert, finished: true},
		{name: "out of range number", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("7")}, want: port.RepairDismissed},
		{name: "escape dismisses", key: tea.KeyMsg{Type: tea.KeyEsc}, want: port.RepairDismissed, finished: true},
		{name: "q dismisses", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, want: port.RepairDismissed, finished: true},
		{name: "ctrl+c cancels", key: tea.KeyMsg{Type: tea.KeyCtrlC}, want: port.RepairDismissed, finished: true, cancelled: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel(testPrompt(t, 0))
			updated, cmd := m.Update(tc.key)
			m = updated.(Model)
			require.Equal(t, tc.want, m.Choice())
			require.Equal(t, tc.finished, m.Finished())
			require.Equal(t, tc.cancelled, m.Cancelled())
			if tc.finished {
				requireQuit(t, cmd)
			} else {
				require.Nil(t, cmd)
			}
		})
	}
}

func TestUpdateHandlesTimeout(t *testing.T) {
	m := NewModel(testPrompt(t, 5*time.Second))
	require.NotNil(t, m.Init())
	require.Equal(t, 5*time.Second, m.Remaining())

	updated, cmd := m.Update(timer.TimeoutMsg{ID: m.timer.ID() + 1})
	require.Nil(t, cmd)
	m = updated.(Model)
	require.False(t, m.Finished(), "foreign timers are ignored")

	updated, cmd = m.Update(timer.TimeoutMsg{ID: m.timer.ID()})
	requireQuit(t, cmd)
	m = updated.(Model)
	require.True(t, m.Finished())
	require.Equal(t, port.RepairDismissed, m.Choice())

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Equal(t, port.RepairDismissed, updated.(Model).Choice(), "answers after finishing are ignored")
}

func TestUpdateWithoutTimeout(t *testing.T) {
	m := NewModel(testPrompt(t, 0))
	require.Nil(t, m.Init())
	require.Zero(t, m.Remaining())

	updated, cmd := m.Update(timer.TimeoutMsg{})
	require.Nil(t, cmd)
	require.False(t, updated.(Model).Finished())
}

func TestViewRendersPrompt(t *testing.T) {
	m := NewModel(testPrompt(t, 10*time.Second))
	view := m.View()
	require.Contains(t, view, "Output already connected")
	require.Contains(t, view, "cannot connect a.out to c.in")
	require.Contains(t, view, "> 1. Keep new connection")
	require.Contains(t, view, "3. Revert")
	require.Contains(t, view, "Restore the connections")
	require.Contains(t, view, "10s left")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Empty(t, updated.(Model).View())
}

func TestPresenterRunsProgram(t *testing.T) {
	var out bytes.Buffer
	presenter := Presenter{Input: strings.NewReader("3"), Output: &out}

	choice, err := presenter.Present(context.Background(), testPrompt(t, 0))
	require.NoError(t, err)
	require.Equal(t, port.RepairRevert, choice)
}

func TestPresenterHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	presenter := Presenter{Input: strings.NewReader(""), Output: &bytes.Buffer{}}
	_, err := presenter.Present(ctx, testPrompt(t, 0))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPresenterDrivesRepair(t *testing.T) {
	_, cerr := sourceBusy(t)
	presenter := Presenter{Input: strings.NewReader("1"), Output: &bytes.Buffer{}}

	res, err := port.Repair(context.Background(), cerr, port.RepairConfig{Presenter: presenter})
	require.NoError(t, err)
	require.Equal(t, port.RepairKeep, res.Choice)
	require.False(t, res.Reverted)
	require.Same(t, cerr.Destination, cerr.Source.Destination())
}
