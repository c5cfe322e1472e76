package port

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

type repairFixture struct {
	metrics *counterMetrics
	scope   *testScope
	a, b, c *testStage
	aOut    *OutputPort
	bIn     *InputPort
	cIn     *InputPort
}

// newSourceBusyFixture connects a.out to b.in and returns the refusal of
// a.out -> c.in.
func newSourceBusyFixture(t *testing.T) (*repairFixture, *CannotConnectError) {
	t.Helper()
	f := &repairFixture{metrics: newCounterMetrics()}
	f.scope = newTestScope("p1", WithMetrics(f.metrics))
	f.a, f.b, f.c = newTestStage("a", f.scope), newTestStage("b", f.scope), newTestStage("c", f.scope)
	f.aOut, f.bIn, f.cIn = f.a.output(t, "out"), f.b.input(t, "in"), f.c.input(t, "in")
	require.NoError(t, f.aOut.ConnectTo(f.bIn))

	var cerr *CannotConnectError
	require.True(t, errors.As(f.aOut.ConnectTo(f.cIn), &cerr))
	return f, cerr
}

func (f *repairFixture) assertUnlocked(t *testing.T) {
	t.Helper()
	for _, p := range []Port{f.aOut, f.bIn, f.cIn} {
		assert.False(t, p.IsLocked(), "%s still locked", p.Spec())
	}
}

func TestRepairKeepsForcedConnection(t *testing.T) {
	cases := []struct {
		name      string
		presenter RepairPresenter
		want      RepairChoice
	}{
		{name: "keep", presenter: AutoPresenter{Choice: RepairKeep}, want: RepairKeep},
		{name: "no presenter", presenter: nil, want: RepairDismissed},
		{
			name: "timeout",
			presenter: PresenterFunc(func(ctx context.Context, _ RepairPrompt) (RepairChoice, error) {
				<-ctx.Done()
				return RepairKeep, ctx.Err()
			}),
			want: RepairDismissed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, cerr := newSourceBusyFixture(t)

			res, err := cerr.ShowRepairPopup(context.Background(), RepairConfig{
				Presenter: tc.presenter,
				Timeout:   10 * time.Millisecond,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Choice)
			assert.False(t, res.Reverted)

			assert.Same(t, f.cIn, f.aOut.Destination())
			assert.False(t, f.bIn.IsConnected())
			f.assertUnlocked(t)
			assert.Equal(t, 1, f.metrics.get(ports.MetricRepairs+"{"+tc.want.String()+"}"))
		})
	}
}

func TestRepairRevertRestoresTopology(t *testing.T) {
	cases := []struct {
		name      string
		presenter RepairPresenter
		ctx       func() context.Context
		wantErr   bool
	}{
		{name: "revert", presenter: AutoPresenter{Choice: RepairRevert}},
		{
			name: "presenter error",
			presenter: PresenterFunc(func(context.Context, RepairPrompt) (RepairChoice, error) {
				return RepairKeep, errors.New("terminal went away")
			}),
			wantErr: true,
		},
		{
			name: "cancelled",
			presenter: PresenterFunc(func(ctx context.Context, _ RepairPrompt) (RepairChoice, error) {
				return RepairDismissed, ctx.Err()
			}),
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErr: true,
		},
		{name: "fan-out without inserter", presenter: AutoPresenter{Choice: RepairInsertFanOut}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, cerr := newSourceBusyFixture(t)
			ctx := context.Background()
			if tc.ctx != nil {
				ctx = tc.ctx()
			}

			res, err := Repair(ctx, cerr, RepairConfig{Presenter: tc.presenter})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, res.Reverted)

			assert.Same(t, f.bIn, f.aOut.Destination())
			assert.Same(t, f.aOut, f.bIn.Source())
			assert.False(t, f.cIn.IsConnected())
			f.assertUnlocked(t)
		})
	}
}

func TestRepairBothBusyRevert(t *testing.T) {
	scope := newTestScope("p1")
	a, b, c := newTestStage("a", scope), newTestStage("b", scope), newTestStage("c", scope)
	aOut, aIn := a.output(t, "out"), a.input(t, "in")
	bIn := b.input(t, "in")
	cOut := c.output(t, "out")
	require.NoError(t, aOut.ConnectTo(bIn))
	require.NoError(t, cOut.ConnectTo(aIn))

	var cerr *CannotConnectError
	require.True(t, errors.As(cOut.ConnectTo(bIn), &cerr))
	require.Equal(t, BothBusy, cerr.Kind)

	var offered []RepairChoice
	presenter := PresenterFunc(func(_ context.Context, prompt RepairPrompt) (RepairChoice, error) {
		for _, act := range prompt.Actions {
			offered = append(offered, act.Choice)
		}
		// The forced state is visible while the prompt is open.
		assert.Same(t, bIn, cOut.Destination())
		assert.False(t, aOut.IsConnected())
		assert.False(t, aIn.IsConnected())
		assert.True(t, bIn.IsLocked())
		return RepairRevert, nil
	})

	_, err := Repair(context.Background(), cerr, RepairConfig{Presenter: presenter, Inserter: &fanOut{}})
	require.NoError(t, err)
	assert.Equal(t, []RepairChoice{RepairKeep, RepairInsertFanOut, RepairRevert}, offered)

	assert.Same(t, bIn, aOut.Destination())
	assert.Same(t, aIn, cOut.Destination())
	for _, p := range []Port{aOut, aIn, bIn, cOut} {
		assert.False(t, p.IsLocked())
	}
}

func TestRepairInsertFanOut(t *testing.T) {
	f, cerr := newSourceBusyFixture(t)
	fan := &fanOut{stage: newTestStage("fan", f.scope)}

	res, err := Repair(context.Background(), cerr, RepairConfig{
		Presenter: AutoPresenter{Choice: RepairInsertFanOut},
		Inserter:  fan,
	})
	require.NoError(t, err)
	assert.Equal(t, RepairInsertFanOut, res.Choice)

	fanIn, _ := fan.stage.in.PortByName("in")
	assert.Same(t, fanIn, f.aOut.Destination())
	require.NotNil(t, f.bIn.Source())
	require.NotNil(t, f.cIn.Source())
	assert.Same(t, fan.stage, f.bIn.Source().Owner())
	assert.Same(t, fan.stage, f.cIn.Source().Owner())
	f.assertUnlocked(t)
}

func TestRepairInserterFailureReverts(t *testing.T) {
	f, cerr := newSourceBusyFixture(t)
	fan := &fanOut{fail: true}

	res, err := Repair(context.Background(), cerr, RepairConfig{
		Presenter: AutoPresenter{Choice: RepairInsertFanOut},
		Inserter:  fan,
	})
	require.Error(t, err)
	assert.True(t, res.Reverted)
	assert.Same(t, f.bIn, f.aOut.Destination())
	assert.False(t, f.cIn.IsConnected())
	f.assertUnlocked(t)
}

func TestRepairRefusesLockedPorts(t *testing.T) {
	f, cerr := newSourceBusyFixture(t)
	require.True(t, f.cIn.Lock())

	_, err := Repair(context.Background(), cerr, RepairConfig{Presenter: AutoPresenter{Choice: RepairKeep}})
	require.ErrorIs(t, err, ErrPortLocked)

	assert.Same(t, f.bIn, f.aOut.Destination(), "nothing changed")
	assert.False(t, f.aOut.IsLocked())
	assert.False(t, f.bIn.IsLocked())
	assert.True(t, f.cIn.IsLocked(), "foreign locks are left alone")
}

// fanOut wires src into a two-output stage feeding dests.
type fanOut struct {
	stage *testStage
	fail  bool
}

func (f *fanOut) InsertFanOut(tx *RepairTx, src *OutputPort, dests ...*InputPort) error {
	if f.fail {
		return errors.New("no room for a fan-out")
	}
	in, err := f.stage.in.CreatePort("in")
	if err != nil {
		return err
	}
	if err := tx.Disconnect(src); err != nil {
		return err
	}
	if err := tx.Connect(src, in); err != nil {
		return err
	}
	for i, dst := range dests {
		out, err := f.stage.out.CreatePort(string(rune('a' + i)))
		if err != nil {
			return err
		}
		if dst.IsConnected() {
			if err := tx.Disconnect(dst); err != nil {
				return err
			}
		}
		if err := tx.Connect(out, dst); err != nil {
			return err
		}
	}
	return nil
}

func TestParseRepairChoice(t *testing.T) {
	for c := RepairDismissed; c <= RepairRevert; c++ {
		got, err := ParseRepairChoice(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseRepairChoice("undo")
	require.Error(t, err)
}
