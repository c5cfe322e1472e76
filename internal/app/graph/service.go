// Package graph coordinates port-graph sessions for the CLI and adapts
// domain results for rendering.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
	"github.com/alexisbeaulieu97/portgraph/pkg/diff"
)

// Service runs port-graph operations against one runtime.
type Service struct {
	rt  *config.Runtime
	log ports.Logger
}

// NewService constructs a service over rt.
func NewService(rt *config.Runtime) *Service {
	return &Service{
		rt:  rt,
		log: logging.OrNoOp(rt.Logger).With("component", "graph"),
	}
}

// Runtime returns the services the graph operations run against.
func (s *Service) Runtime() *config.Runtime {
	return s.rt
}

// NewProcess creates an empty process bound to the runtime environment.
func (s *Service) NewProcess(name string) *stage.Process {
	return stage.NewProcess(name, s.rt.Env)
}

// ConnectRequest asks for a connection, repaired if necessary.
type ConnectRequest struct {
	Process     *stage.Process
	Source      *port.OutputPort
	Destination *port.InputPort
	// Presenter answers the repair prompt; nil falls back to the configured
	// choice.
	Presenter port.RepairPresenter
}

// ConnectOutcome describes what a connect request changed.
type ConnectOutcome struct {
	Repaired bool
	Repair   port.RepairResult
	Before   []string
	After    []string
	// Diff is the unified rendering of Before against After, empty when the
	// topology did not change.
	Diff string
}

// Connect connects the requested ports. A refused connection with repair
// options goes through guided repair; other failures are returned as is.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) (*ConnectOutcome, error) {
	if req.Process == nil || req.Source == nil || req.Destination == nil {
		return nil, errors.New("connect requires a process and both ports")
	}

	outcome := &ConnectOutcome{Before: Snapshot(req.Process)}
	err := req.Source.ConnectTo(req.Destination)

	var cerr *port.CannotConnectError
	if errors.As(err, &cerr) && cerr.HasRepairOptions() {
		cfg := s.rt.RepairConfig(req.Process)
		if req.Presenter != nil {
			cfg.Presenter = req.Presenter
		}
		s.log.Info(ctx, "connection refused, starting guided repair", "error", err)
		outcome.Repaired = true
		outcome.Repair, err = port.Repair(ctx, cerr, cfg)
	}

	outcome.After = Snapshot(req.Process)
	outcome.Diff = diff.Lines(outcome.Before, outcome.After, "before", "after")
	if err != nil {
		return outcome, fmt.Errorf("connect %s to %s: %w", req.Source.Spec(), req.Destination.Spec(), err)
	}
	s.log.Debug(ctx, "connection applied",
		"source", req.Source.Spec(),
		"destination", req.Destination.Spec(),
		"changed_lines", len(diff.Changed(outcome.Diff)))
	return outcome, nil
}

// Diagnosis is the advisory state of a process.
type Diagnosis struct {
	Errors []*port.MetaDataError
	Fixes  []port.PortQuickFix
}

// Count returns how many errors carry severity sev.
func (d *Diagnosis) Count(sev port.Severity) int {
	if d == nil {
		return 0
	}
	return port.CountSeverity(d.Errors, sev)
}

// Diagnose recomputes the speculative metadata of p in dependency order and
// reports the resulting errors and quick fixes.
func (s *Service) Diagnose(ctx context.Context, p *stage.Process) (*Diagnosis, error) {
	if err := p.PropagateMetaData(ctx); err != nil {
		return nil, fmt.Errorf("propagate metadata: %w", err)
	}
	return diagnosis(p), nil
}

// Check re-runs the input preconditions of p against the metadata currently
// held by the ports, without recomputing it.
func (s *Service) Check(ctx context.Context, p *stage.Process) *Diagnosis {
	for _, st := range p.Stages() {
		for _, in := range st.Inputs().AllPorts() {
			in.Recheck()
		}
	}
	d := diagnosis(p)
	s.log.Debug(ctx, "preconditions checked",
		"process", p.Name(),
		"errors", d.Count(port.SeverityError),
		"warnings", d.Count(port.SeverityWarning))
	return d
}

func diagnosis(p *stage.Process) *Diagnosis {
	return &Diagnosis{Errors: p.Errors(), Fixes: p.CollectQuickFixes()}
}
