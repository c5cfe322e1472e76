package stage

import (
	"context"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// Multiplier port names and stage kind.
const (
	MultiplierKind         = "Multiplier"
	MultiplierInput        = "input"
	MultiplierOutputPrefix = "output "
)

// NewMultiplier adds a fan-out stage to p: one input whose payload and
// metadata are copied to every connected output. One free output is always
// available.
func NewMultiplier(p *Process, name string) (*Stage, error) {
	s, err := p.AddStage(name,
		WithKind(MultiplierKind),
		WithRules(RuleFunc(multiplyMetaData)),
		WithExecute(multiplyData),
	)
	if err != nil {
		return nil, err
	}

	if _, err := s.inputs.CreatePort(MultiplierInput); err != nil {
		p.detach(s)
		return nil, err
	}
	if _, err := port.NewSequenceExtender(s.outputs, MultiplierOutputPrefix, port.KeepOneFree(), port.MinPorts(1)); err != nil {
		p.detach(s)
		return nil, err
	}
	return s, nil
}

func multiplyMetaData(s *Stage) error {
	in, err := s.Input(MultiplierInput)
	if err != nil {
		return err
	}
	md := in.MetaData()
	for _, out := range s.outputs.AllPorts() {
		if out.IsConnected() {
			out.DeliverMD(md.WithGeneratedBy(out.Spec()))
		}
	}
	return nil
}

func multiplyData(_ context.Context, s *Stage) error {
	in, err := s.Input(MultiplierInput)
	if err != nil {
		return err
	}
	data := in.RawData()
	for _, out := range s.outputs.AllPorts() {
		if out.IsConnected() {
			out.Deliver(data)
		}
	}
	return nil
}
