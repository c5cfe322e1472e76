package port

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePort(t *testing.T) {
	s := newTestStage("a", newTestScope("p1"))

	p, err := s.in.CreatePort("example set")
	require.NoError(t, err)
	assert.Equal(t, "example set", p.Name())
	assert.True(t, s.in.ContainsPort(p))
	assert.Same(t, s, p.Owner())

	cases := []struct {
		name string
		code ErrorCode
	}{
		{name: "example set", code: ErrCodeDuplicate},
		{name: "", code: ErrCodeInvalidName},
		{name: " padded", code: ErrCodeInvalidName},
		{name: "a.b", code: ErrCodeInvalidName},
		{name: "tab\tname", code: ErrCodeInvalidName},
	}
	for _, tc := range cases {
		t.Run(string(tc.code)+"/"+tc.name, func(t *testing.T) {
			_, err := s.in.CreatePort(tc.name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, &ConnectionError{Code: tc.code}), "got %v", err)
		})
	}
	assert.Equal(t, 1, s.in.Len())
}

func TestDetachedPortsJoinOnAdd(t *testing.T) {
	a := newTestStage("a", newTestScope("p1"))
	b := newTestStage("b", newTestScope("p1"))

	p, err := a.out.CreatePort("later", Detached(), SimulatingStack())
	require.NoError(t, err)
	assert.False(t, a.out.ContainsPort(p))
	assert.True(t, p.SimulatesStack())

	in := b.input(t, "in")
	err = p.ConnectTo(in)
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeForeignPort}))

	err = b.out.AddPort(p)
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeForeignPort}), "ports only join the group that made them")

	require.NoError(t, a.out.AddPort(p))
	assert.True(t, a.out.ContainsPort(p))
	require.NoError(t, p.ConnectTo(in))

	err = a.out.AddPort(p)
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeDuplicate}))
}

func TestRemovePortDisconnectsFirst(t *testing.T) {
	scope := newTestScope("p1")
	a, b := newTestStage("a", scope), newTestStage("b", scope)
	out, in := a.output(t, "out"), b.input(t, "in")
	require.NoError(t, out.ConnectTo(in))

	obs := &recordingObserver{}
	b.in.AddObserver(obs)

	require.NoError(t, b.in.RemovePort(in))

	assert.False(t, out.IsConnected())
	assert.False(t, b.in.ContainsPort(in))
	_, ok := b.in.PortByName("in")
	assert.False(t, ok)
	assert.Equal(t, 1, obs.count(ChangeDisconnected))
	assert.Equal(t, 1, obs.count(ChangeRemoved))

	err := out.ConnectTo(in)
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeForeignPort}), "removed ports cannot be reconnected")
}

func TestRemovePortRejectsForeignAndLocked(t *testing.T) {
	scope := newTestScope("p1")
	a, b := newTestStage("a", scope), newTestStage("b", scope)
	aIn, bIn := a.input(t, "in"), b.input(t, "in")

	err := a.in.RemovePort(bIn)
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeForeignPort}))
	assert.True(t, b.in.ContainsPort(bIn))

	require.True(t, aIn.Lock())
	require.ErrorIs(t, a.in.RemovePort(aIn), ErrPortLocked)
	aIn.Unlock()
	require.NoError(t, a.in.RemovePort(aIn))
}

func TestRemoveAllToleratesShrinkingObservers(t *testing.T) {
	scope := newTestScope("p1")
	a, b := newTestStage("a", scope), newTestStage("b", scope)
	for _, name := range []string{"x", "y", "z"} {
		out := a.output(t, name)
		require.NoError(t, out.ConnectTo(b.input(t, name)))
	}

	// Removing one port makes the observer drop another one.
	b.in.AddObserver(&cascadeRemover{group: b.in})
	require.NoError(t, b.in.RemoveAll())

	assert.Zero(t, b.in.Len())
	assert.Zero(t, a.out.NumberOfConnectedPorts())
}

type cascadeRemover struct{ group *InputPorts }

func (c *cascadeRemover) PortsChanged(ev ChangeEvent) {
	if ev.Kind != ChangeRemoved {
		return
	}
	if ports := c.group.AllPorts(); len(ports) > 0 {
		_ = c.group.RemovePort(ports[0])
	}
}

func TestRenameAndPushDown(t *testing.T) {
	scope := newTestScope("p1")
	a, b := newTestStage("a", scope), newTestStage("b", scope)
	first, second := b.input(t, "first"), b.input(t, "second")
	out := a.output(t, "out")
	require.NoError(t, out.ConnectTo(first))

	require.NoError(t, b.in.RenamePort(first, "primary"))
	_, ok := b.in.PortByName("first")
	assert.False(t, ok)
	got, ok := b.in.PortByName("primary")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Same(t, out, first.Source(), "renaming keeps connections")
	assert.Equal(t, "b.primary", first.Spec())

	err := b.in.RenamePort(first, "second")
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeDuplicate}))

	require.NoError(t, b.in.PushDown(first))
	assert.Equal(t, []string{"second", "primary"}, b.in.PortNames())
	p, err := b.in.PortByIndex(0)
	require.NoError(t, err)
	assert.Same(t, second, p)

	_, err = b.in.PortByIndex(2)
	assert.True(t, errors.Is(err, &ConnectionError{Code: ErrCodeNotFound}))
}

func TestDisconnectAllBut(t *testing.T) {
	scope := newTestScope("p1")
	a, b, c := newTestStage("a", scope), newTestStage("b", scope), newTestStage("c", scope)
	fromB, fromC := b.output(t, "out"), c.output(t, "out")
	inB, inC := a.input(t, "from b"), a.input(t, "from c")
	require.NoError(t, fromB.ConnectTo(inB))
	require.NoError(t, fromC.ConnectTo(inC))

	require.NoError(t, a.in.DisconnectAllBut([]Owner{b}))
	assert.True(t, inB.IsConnected())
	assert.False(t, inC.IsConnected())
	assert.Equal(t, 1, a.in.NumberOfConnectedPorts())

	require.True(t, fromB.Lock())
	err := a.in.DisconnectAll()
	require.ErrorIs(t, err, ErrPortLocked)
	fromB.Unlock()
	require.NoError(t, a.in.DisconnectAll())
	assert.Zero(t, a.in.NumberOfConnectedPorts())
}

func TestSharedObserverNotifiedOnce(t *testing.T) {
	scope := newTestScope("p1")
	a := newTestStage("a", scope)
	out, in := a.output(t, "out"), a.input(t, "in")

	obs := &recordingObserver{}
	a.in.AddObserver(obs)
	a.out.AddObserver(obs)
	a.out.AddObserver(obs)

	require.NoError(t, out.ConnectTo(in))
	require.NoError(t, in.Disconnect())
	assert.Equal(t, 1, obs.count(ChangeConnected))
	assert.Equal(t, 1, obs.count(ChangeDisconnected))

	a.out.RemoveObserver(obs)
	a.in.RemoveObserver(obs)
	require.NoError(t, out.ConnectTo(in))
	assert.Equal(t, 1, obs.count(ChangeConnected))
}

func TestGroupAggregates(t *testing.T) {
	scope := newTestScope("p1")
	s := newTestStage("a", scope)
	x, y := s.input(t, "x"), s.input(t, "y")

	x.AddError(NewMetaDataError(x, SeverityError, CodeWrongType, "bad").
		WithQuickFixes(QuickFix{Name: "convert", Rating: 1}))
	y.AddError(NewMetaDataError(y, SeverityWarning, CodeNeedsConversion, "meh").
		WithQuickFixes(QuickFix{Name: "connect", Rating: 3}, QuickFix{Name: "convert", Rating: 1}))
	x.Receive("payload")

	errs := s.in.Errors()
	require.Len(t, errs, 2)
	assert.Same(t, x, errs[0].Port)

	fixes := s.in.CollectQuickFixes()
	require.Len(t, fixes, 3)
	assert.Equal(t, "connect", fixes[0].Fix.Name)
	assert.Same(t, y, fixes[0].Error.Port)

	s.in.FreeMemory()
	assert.Nil(t, x.RawData())

	s.in.Clear(ClearErrors)
	assert.Empty(t, s.in.Errors())
}
