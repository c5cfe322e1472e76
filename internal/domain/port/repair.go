package port

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// RepairChoice is the user's answer to a repair prompt.
type RepairChoice int

const (
	// RepairDismissed means the prompt closed without an answer, typically
	// on timeout. The forced connection stays.
	RepairDismissed RepairChoice = iota
	// RepairKeep accepts the forced connection.
	RepairKeep
	// RepairInsertFanOut routes the old and the new destination through a
	// fan-out stage so neither loses its input.
	RepairInsertFanOut
	// RepairRevert restores the topology from before the repair.
	RepairRevert
)

func (c RepairChoice) String() string {
	switch c {
	case RepairDismissed:
		return "dismissed"
	case RepairKeep:
		return "keep"
	case RepairInsertFanOut:
		return "insert_fan_out"
	case RepairRevert:
		return "revert"
	default:
		return fmt.Sprintf("RepairChoice(%d)", int(c))
	}
}

// ParseRepairChoice is the inverse of RepairChoice.String.
func ParseRepairChoice(s string) (RepairChoice, error) {
	for c := RepairDismissed; c <= RepairRevert; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return RepairDismissed, fmt.Errorf("unknown repair choice %q", s)
}

// RepairAction is one entry of a repair prompt.
type RepairAction struct {
	Choice      RepairChoice
	Label       string
	Description string
}

// RepairPrompt is shown after the forced reconnection has been applied.
type RepairPrompt struct {
	Error   *CannotConnectError
	Actions []RepairAction
	Timeout time.Duration
}

// RepairPresenter asks the user how to proceed. Returning RepairDismissed or
// a context deadline error keeps the forced connection; any other error
// reverts it.
type RepairPresenter interface {
	Present(ctx context.Context, prompt RepairPrompt) (RepairChoice, error)
}

// PresenterFunc adapts a function to RepairPresenter.
type PresenterFunc func(ctx context.Context, prompt RepairPrompt) (RepairChoice, error)

// Present implements RepairPresenter.
func (f PresenterFunc) Present(ctx context.Context, prompt RepairPrompt) (RepairChoice, error) {
	return f(ctx, prompt)
}

// AutoPresenter answers every prompt with a fixed choice. The zero value
// dismisses.
type AutoPresenter struct {
	Choice RepairChoice
}

// Present implements RepairPresenter.
func (a AutoPresenter) Present(context.Context, RepairPrompt) (RepairChoice, error) {
	return a.Choice, nil
}

// FanOutInserter places a fan-out stage between src and dests. It runs while
// the involved ports are locked and must therefore rewire through tx.
type FanOutInserter interface {
	InsertFanOut(tx *RepairTx, src *OutputPort, dests ...*InputPort) error
}

// RepairConfig collects the collaborators of a guided repair.
type RepairConfig struct {
	Presenter RepairPresenter
	Inserter  FanOutInserter
	// Timeout bounds the prompt; zero means no bound beyond ctx.
	Timeout time.Duration
}

// RepairResult reports what a guided repair did.
type RepairResult struct {
	Choice   RepairChoice
	Reverted bool
}

// RepairTx rewires ports that are locked by the repair in progress.
type RepairTx struct {
	guard *lockGuard
}

// Connect connects out to in without lock checks. Busy ports are still
// refused.
func (tx *RepairTx) Connect(out *OutputPort, in *InputPort) error {
	if out == nil || in == nil {
		return newConnectionError(ErrCodeNotFound, nil, "cannot connect a nil port")
	}
	return out.connect(in, false)
}

// Disconnect disconnects p without lock checks.
func (tx *RepairTx) Disconnect(p Port) error {
	switch v := p.(type) {
	case *OutputPort:
		return v.disconnect()
	case *InputPort:
		src := v.Source()
		if src == nil {
			return newConnectionError(ErrCodeNotConnected, v, "port is not connected")
		}
		return src.disconnect()
	default:
		return newConnectionError(ErrCodeNotFound, p, "unsupported port type %T", p)
	}
}

// lockGuard holds the advisory locks taken by a repair.
type lockGuard struct {
	held []Port
}

// lockAll locks every distinct non-nil port or none of them.
func lockAll(candidates ...Port) (*lockGuard, error) {
	g := &lockGuard{}
	seen := make(map[uint64]struct{}, len(candidates))
	for _, p := range candidates {
		if p == nil {
			continue
		}
		if _, dup := seen[p.ID()]; dup {
			continue
		}
		seen[p.ID()] = struct{}{}
		if !p.Lock() {
			g.release()
			return nil, lockedError(p)
		}
		g.held = append(g.held, p)
	}
	return g, nil
}

func (g *lockGuard) release() {
	for i := len(g.held) - 1; i >= 0; i-- {
		g.held[i].Unlock()
	}
	g.held = nil
}

// ShowRepairPopup runs a guided repair for e. See Repair.
func (e *CannotConnectError) ShowRepairPopup(ctx context.Context, cfg RepairConfig) (RepairResult, error) {
	return Repair(ctx, e, cfg)
}

// Repair resolves a refused connection interactively. All involved ports are
// locked for the whole operation and released on every path. The requested
// connection is forced first, disconnecting whatever occupied either side;
// the presenter then decides whether to keep it, to insert a fan-out stage
// (only when the source was busy and an inserter is configured) or to revert
// to the previous topology.
func Repair(ctx context.Context, cerr *CannotConnectError, cfg RepairConfig) (result RepairResult, err error) {
	if !cerr.HasRepairOptions() {
		return RepairResult{}, errors.New("connection error carries no repair context")
	}
	src, dst := cerr.Source, cerr.Destination
	prevDst, prevSrc := cerr.PreviousDestination, cerr.PreviousSource

	env := src.environment()
	log := env.Logger().With("component", "repair", "source", src.Spec(), "destination", dst.Spec())

	guard, err := lockAll(src, dst, inputOrNil(prevDst), outputOrNil(prevSrc))
	if err != nil {
		return RepairResult{}, err
	}
	defer guard.release()
	tx := &RepairTx{guard: guard}

	if err := src.connect(dst, true); err != nil {
		return RepairResult{}, fmt.Errorf("force connection: %w", err)
	}
	defer func() {
		env.inc(ports.MetricRepairs, map[string]string{"choice": result.Choice.String()})
		env.publish(repairEvent{err: cerr, result: result})
	}()
	log.Info(ctx, "forced connection applied", "kind", cerr.Kind.String())

	prompt := RepairPrompt{Error: cerr, Timeout: cfg.Timeout, Actions: repairActions(cerr, cfg.Inserter)}
	presenter := cfg.Presenter
	if presenter == nil {
		presenter = AutoPresenter{}
	}

	pctx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	choice, perr := presenter.Present(pctx, prompt)
	switch {
	case perr == nil:
	case errors.Is(perr, context.DeadlineExceeded):
		choice = RepairDismissed
	default:
		log.Warn(ctx, "repair prompt failed, reverting", "error", perr)
		result = RepairResult{Choice: RepairRevert, Reverted: true}
		if rerr := revert(src, dst, prevDst, prevSrc); rerr != nil {
			return result, errors.Join(perr, rerr)
		}
		return result, perr
	}

	result.Choice = choice
	switch choice {
	case RepairDismissed, RepairKeep:
		return result, nil

	case RepairInsertFanOut:
		if !cerr.SourceWasBusy() || cfg.Inserter == nil {
			result.Reverted = true
			return result, errors.Join(fmt.Errorf("fan-out insertion is not available for %s", cerr.Kind),
				revert(src, dst, prevDst, prevSrc))
		}
		if ierr := cfg.Inserter.InsertFanOut(tx, src, prevDst, dst); ierr != nil {
			log.Warn(ctx, "fan-out insertion failed, reverting", "error", ierr)
			result.Reverted = true
			return result, errors.Join(ierr, revert(src, dst, prevDst, prevSrc))
		}
		log.Info(ctx, "fan-out inserted", "previous_destination", prevDst.Spec())
		return result, nil

	case RepairRevert:
		result.Reverted = true
		if rerr := revert(src, dst, prevDst, prevSrc); rerr != nil {
			return result, rerr
		}
		log.Info(ctx, "repair reverted")
		return result, nil

	default:
		return result, fmt.Errorf("unknown repair choice %s", choice)
	}
}

func repairActions(cerr *CannotConnectError, inserter FanOutInserter) []RepairAction {
	actions := []RepairAction{{
		Choice:      RepairKeep,
		Label:       "Keep new connection",
		Description: fmt.Sprintf("Connect %s to %s and drop the previous connections", cerr.Source.Spec(), cerr.Destination.Spec()),
	}}
	if cerr.SourceWasBusy() && inserter != nil {
		actions = append(actions, RepairAction{
			Choice:      RepairInsertFanOut,
			Label:       "Insert fan-out",
			Description: fmt.Sprintf("Feed both %s and %s from %s", cerr.PreviousDestination.Spec(), cerr.Destination.Spec(), cerr.Source.Spec()),
		})
	}
	return append(actions, RepairAction{
		Choice:      RepairRevert,
		Label:       "Revert",
		Description: "Restore the connections from before the attempt",
	})
}

// revert restores src->prevDst and prevSrc->dst, forcing over whatever the
// repair left behind.
func revert(src *OutputPort, dst *InputPort, prevDst *InputPort, prevSrc *OutputPort) error {
	var errs []error
	if src.Destination() == dst {
		if err := src.disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	if prevDst != nil {
		if err := src.connect(prevDst, true); err != nil {
			errs = append(errs, err)
		}
	}
	if prevSrc != nil {
		if err := prevSrc.connect(dst, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func inputOrNil(p *InputPort) Port {
	if p == nil {
		return nil
	}
	return p
}

func outputOrNil(p *OutputPort) Port {
	if p == nil {
		return nil
	}
	return p
}

type repairEvent struct {
	err    *CannotConnectError
	result RepairResult
}

func (e repairEvent) EventType() string { return ports.EventRepairApplied }

func (e repairEvent) Payload() interface{} {
	return map[string]interface{}{
		"source":      e.err.Source.Spec(),
		"destination": e.err.Destination.Spec(),
		"kind":        e.err.Kind.String(),
		"choice":      e.result.Choice.String(),
		"reverted":    e.result.Reverted,
	}
}
