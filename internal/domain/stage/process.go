package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// Process is the connection scope for a set of stages. Ports of stages in
// different processes can never be connected.
type Process struct {
	id   string
	name string
	env  *port.Environment

	mu      sync.RWMutex
	stages  []*Stage
	byName  map[string]*Stage
	fanOuts int
}

// NewProcess creates an empty process with a fresh scope identifier. A nil env
// falls back to a default environment.
func NewProcess(name string, env *port.Environment) *Process {
	if env == nil {
		env = port.NewEnvironment()
	}
	return &Process{
		id:     uuid.NewString(),
		name:   name,
		env:    env,
		byName: make(map[string]*Stage),
	}
}

// ScopeID implements port.Scope.
func (p *Process) ScopeID() string { return p.id }

// Environment implements port.Scope.
func (p *Process) Environment() *port.Environment { return p.env }

// Name returns the process name.
func (p *Process) Name() string { return p.name }

func (p *Process) logger() ports.Logger {
	return p.env.Logger().With("component", "process", "process", p.name)
}

// AddStage creates a stage named name inside the process.
func (p *Process) AddStage(name string, opts ...Option) (*Stage, error) {
	if name == "" {
		return nil, newDomainError(ErrCodeValidation, "stage name must not be empty", nil, nil)
	}
	s := newStage(name, opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byName[name]; exists {
		return nil, newDuplicateError(name)
	}
	s.setProcess(p)
	p.stages = append(p.stages, s)
	p.byName[name] = s
	return s, nil
}

// Stage looks a stage up by name.
func (p *Process) Stage(name string) (*Stage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.byName[name]
	return s, ok
}

// Stages returns the stages in insertion order.
func (p *Process) Stages() []*Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Stage(nil), p.stages...)
}

// RemoveStage disconnects every port of the stage and removes it.
func (p *Process) RemoveStage(name string) error {
	s, ok := p.Stage(name)
	if !ok {
		return newNotFoundError(name)
	}
	if err := errors.Join(s.inputs.DisconnectAll(), s.outputs.DisconnectAll()); err != nil {
		return newDomainError(ErrCodeValidation, "cannot disconnect stage", err, map[string]interface{}{"stage": name})
	}
	p.detach(s)
	return nil
}

func (p *Process) detach(s *Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byName[s.name] != s {
		return
	}
	delete(p.byName, s.name)
	next := make([]*Stage, 0, len(p.stages))
	for _, existing := range p.stages {
		if existing != s {
			next = append(next, existing)
		}
	}
	p.stages = next
	s.setProcess(nil)
}

// FreeOutputs implements port.OutputFinder.
func (p *Process) FreeOutputs() []*port.OutputPort {
	var free []*port.OutputPort
	for _, s := range p.Stages() {
		for _, out := range s.outputs.AllPorts() {
			if !out.IsConnected() {
				free = append(free, out)
			}
		}
	}
	return free
}

// Order returns the stages so that producers precede their consumers.
func (p *Process) Order() ([]*Stage, error) {
	stages := p.Stages()
	g := newDependencyGraph()
	for _, s := range stages {
		g.addNode(s.name)
		for _, in := range s.inputs.AllPorts() {
			src := in.Source()
			if src == nil {
				continue
			}
			if producer, ok := src.Owner().(*Stage); ok && producer.Process() == p {
				g.addEdge(s.name, producer.name)
			}
		}
	}

	names, err := g.order()
	if err != nil {
		return nil, newDomainError(ErrCodeCycle, "cannot order stages", err, map[string]interface{}{"process": p.name})
	}
	ordered := make([]*Stage, 0, len(names))
	for _, name := range names {
		if s, ok := p.Stage(name); ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// PropagateMetaData recomputes all speculative metadata: errors and
// metadata are cleared, then every stage transforms its metadata in
// dependency order. Problems are recorded on ports; only ordering and rule
// failures are returned.
func (p *Process) PropagateMetaData(ctx context.Context) error {
	start := time.Now()
	defer func() {
		p.env.Observe(ctx, ports.MetricPropagationSeconds, time.Since(start).Seconds(), nil)
	}()

	ordered, err := p.Order()
	if err != nil {
		return err
	}
	for _, s := range ordered {
		s.inputs.Clear(port.ClearErrors | port.ClearMetaData)
		s.outputs.Clear(port.ClearErrors | port.ClearMetaData)
	}

	var errs []error
	for _, s := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.TransformMetaData(); err != nil {
			errs = append(errs, err)
		}
	}

	all := p.Errors()
	p.logger().Debug(ctx, "metadata propagated",
		"stages", len(ordered),
		"errors", port.CountSeverity(all, port.SeverityError),
		"warnings", port.CountSeverity(all, port.SeverityWarning))
	return errors.Join(errs...)
}

// Errors returns the metadata errors of every stage in insertion order.
func (p *Process) Errors() []*port.MetaDataError {
	var out []*port.MetaDataError
	for _, s := range p.Stages() {
		out = append(out, s.Errors()...)
	}
	return out
}

// CollectQuickFixes returns the quick fixes of all errors, best first.
func (p *Process) CollectQuickFixes() []port.PortQuickFix {
	return port.SortQuickFixes(p.Errors())
}

// FreeMemory drops the strong payload references of every stage.
func (p *Process) FreeMemory() {
	for _, s := range p.Stages() {
		s.FreeMemory()
	}
}

// InsertFanOut implements port.FanOutInserter: it adds a Multiplier fed by
// src whose outputs feed dests in order. On failure the Multiplier is
// removed again.
func (p *Process) InsertFanOut(tx *port.RepairTx, src *port.OutputPort, dests ...*port.InputPort) (err error) {
	p.mu.Lock()
	p.fanOuts++
	name := fmt.Sprintf("Multiplier (%d)", p.fanOuts)
	p.mu.Unlock()

	m, err := NewMultiplier(p, name)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			p.discard(tx, m)
		}
	}()

	in, err := m.Input(MultiplierInput)
	if err != nil {
		return err
	}
	if src.IsConnected() {
		if err := tx.Disconnect(src); err != nil {
			return err
		}
	}
	if err := tx.Connect(src, in); err != nil {
		return err
	}

	for i, dst := range dests {
		if dst == nil {
			continue
		}
		out, err := m.Output(fmt.Sprintf("%s%d", MultiplierOutputPrefix, i+1))
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

	p.logger().Info(context.Background(), "fan-out inserted", "stage", name, "source", src.Spec(), "destinations", len(dests))
	return nil
}

// discard tears down a partially wired stage through tx, since its peers may
// be locked.
func (p *Process) discard(tx *port.RepairTx, s *Stage) {
	for _, in := range s.inputs.AllPorts() {
		if in.IsConnected() {
			_ = tx.Disconnect(in)
		}
	}
	for _, out := range s.outputs.AllPorts() {
		if out.IsConnected() {
			_ = tx.Disconnect(out)
		}
	}
	p.detach(s)
}
