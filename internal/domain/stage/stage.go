// Package stage provides the processing stages that own port groups and the
// Process that scopes their connections.
package stage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// ExecuteFunc is the execution step of a stage. It reads inputs and delivers
// outputs through the stage's ports.
type ExecuteFunc func(ctx context.Context, s *Stage) error

// Stage is a processing step exposing named input and output ports.
type Stage struct {
	name    string
	kind    string
	inputs  *port.InputPorts
	outputs *port.OutputPorts

	mu      sync.RWMutex
	process *Process
	rules   []Rule
	exec    ExecuteFunc

	executing atomic.Bool
}

// Option configures a Stage.
type Option func(*Stage)

// WithKind sets the stage type name, e.g. "Multiplier". Quick-fix filters
// match on it.
func WithKind(kind string) Option {
	return func(s *Stage) { s.kind = kind }
}

// WithRules attaches metadata transformation rules.
func WithRules(rules ...Rule) Option {
	return func(s *Stage) { s.rules = append(s.rules, rules...) }
}

// WithExecute sets the execution step.
func WithExecute(fn ExecuteFunc) Option {
	return func(s *Stage) { s.exec = fn }
}

func newStage(name string, opts ...Option) *Stage {
	s := &Stage{name: name, kind: "Stage"}
	s.inputs = port.NewInputPorts(s)
	s.outputs = port.NewOutputPorts(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements port.Owner.
func (s *Stage) Name() string { return s.name }

// Kind returns the stage type name.
func (s *Stage) Kind() string { return s.kind }

// Scope implements port.Owner. A stage removed from its process has no scope.
func (s *Stage) Scope() port.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.process == nil {
		return nil
	}
	return s.process
}

// Process returns the owning process or nil.
func (s *Stage) Process() *Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.process
}

func (s *Stage) setProcess(p *Process) {
	s.mu.Lock()
	s.process = p
	s.mu.Unlock()
}

// Executing implements port.Owner.
func (s *Stage) Executing() bool { return s.executing.Load() }

// Inputs returns the input port group.
func (s *Stage) Inputs() *port.InputPorts { return s.inputs }

// Outputs returns the output port group.
func (s *Stage) Outputs() *port.OutputPorts { return s.outputs }

// AddRule appends a metadata transformation rule.
func (s *Stage) AddRule(r Rule) {
	if r == nil {
		return
	}
	s.mu.Lock()
	s.rules = append(s.rules, r)
	s.mu.Unlock()
}

func (s *Stage) snapshotRules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Rule(nil), s.rules...)
}

// TransformMetaData checks the input preconditions and then applies the
// rules to produce output metadata. Rule failures are returned joined; the
// remaining rules still run.
func (s *Stage) TransformMetaData() error {
	for _, in := range s.inputs.AllPorts() {
		in.CheckPreconditions()
	}
	var errs []error
	for _, r := range s.snapshotRules() {
		if err := r.Transform(s); err != nil {
			errs = append(errs, newDomainError(ErrCodeRule, "metadata rule failed", err,
				map[string]interface{}{"stage": s.name}))
		}
	}
	return errors.Join(errs...)
}

// Execute runs the execution step with the executing flag raised.
func (s *Stage) Execute(ctx context.Context) error {
	s.mu.RLock()
	exec := s.exec
	s.mu.RUnlock()
	if exec == nil {
		return nil
	}

	s.executing.Store(true)
	defer s.executing.Store(false)
	if err := exec(ctx, s); err != nil {
		return newDomainError(ErrCodeExecution, "stage execution failed", err,
			map[string]interface{}{"stage": s.name})
	}
	return nil
}

// Errors returns the metadata errors of all ports, inputs first.
func (s *Stage) Errors() []*port.MetaDataError {
	return append(s.inputs.Errors(), s.outputs.Errors()...)
}

// FreeMemory drops the strong payload references of all ports.
func (s *Stage) FreeMemory() {
	s.inputs.FreeMemory()
	s.outputs.FreeMemory()
}

// Input is a shorthand for Inputs().PortByName.
func (s *Stage) Input(name string) (*port.InputPort, error) {
	p, ok := s.inputs.PortByName(name)
	if !ok {
		return nil, newDomainError(ErrCodeNotFound, "unknown input port", nil,
			map[string]interface{}{"stage": s.name, "port": name})
	}
	return p, nil
}

// Output is a shorthand for Outputs().PortByName.
func (s *Stage) Output(name string) (*port.OutputPort, error) {
	p, ok := s.outputs.PortByName(name)
	if !ok {
		return nil, newDomainError(ErrCodeNotFound, "unknown output port", nil,
			map[string]interface{}{"stage": s.name, "port": name})
	}
	return p, nil
}
