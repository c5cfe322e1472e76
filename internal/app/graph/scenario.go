package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
)

// Record is the payload moved through the demo graph.
type Record struct {
	ID   int    `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Step is one stage of a walkthrough with the state it left behind.
type Step struct {
	Title     string
	Topology  []string
	Diagnosis *Diagnosis
}

// DemoReport is the result of the end-to-end walkthrough.
type DemoReport struct {
	Steps []Step
	// Received is the record read by the consumer after execution, decoded
	// from the loosely typed payload the producer delivered.
	Received Record
}

// RunDemo walks a producer "A" and a consumer "B" requiring Record metadata
// through connect, matching and mismatching metadata, disconnect, the quick
// fix that reconnects them, and finally one execution.
func (s *Service) RunDemo(ctx context.Context) (*DemoReport, error) {
	p := s.NewProcess("demo")
	report := &DemoReport{}

	a, err := p.AddStage("A", stage.WithExecute(func(_ context.Context, st *stage.Stage) error {
		out, err := st.Output("out")
		if err != nil {
			return err
		}
		out.Deliver(map[string]any{"id": "7", "name": "orders"})
		return nil
	}))
	if err != nil {
		return nil, err
	}
	aOut, err := a.Outputs().CreatePort("out")
	if err != nil {
		return nil, err
	}

	b, err := p.AddStage("B", stage.WithExecute(func(_ context.Context, st *stage.Stage) error {
		in, err := st.Input("in")
		if err != nil {
			return err
		}
		report.Received, err = port.Data[Record](in)
		return err
	}))
	if err != nil {
		return nil, err
	}
	bIn, err := b.Inputs().CreatePort("in")
	if err != nil {
		return nil, err
	}
	bIn.AddPrecondition(port.RequireType[Record]())

	record := func(title string) {
		report.Steps = append(report.Steps, Step{Title: title, Topology: Snapshot(p), Diagnosis: s.Check(ctx, p)})
	}

	if err := aOut.ConnectTo(bIn); err != nil {
		return nil, err
	}
	aOut.DeliverMD(metadata.Of[Record]())
	record("connect A.out to B.in and deliver Record metadata")

	aOut.DeliverMD(metadata.Of[string]())
	record("deliver string metadata")

	if err := aOut.Disconnect(); err != nil {
		return nil, err
	}
	record("disconnect A.out")

	fixes := port.SortQuickFixes(bIn.Errors())
	if len(fixes) == 0 {
		return report, errors.New("no quick fix offered for the disconnected input")
	}
	if err := fixes[0].Fix.Apply(); err != nil {
		return report, fmt.Errorf("apply quick fix %q: %w", fixes[0].Fix.Name, err)
	}
	aOut.DeliverMD(metadata.Of[Record]())
	record(fmt.Sprintf("apply quick fix %q", fixes[0].Fix.Name))

	order, err := p.Order()
	if err != nil {
		return report, err
	}
	for _, st := range order {
		if err := st.Execute(ctx); err != nil {
			return report, err
		}
	}
	record("execute A and B")
	return report, nil
}

// RepairDemo is the result of the busy-source walkthrough.
type RepairDemo struct {
	Connect   *ConnectOutcome
	Diagnosis *Diagnosis
}

// RunRepairDemo connects numbers.out to left.in and then requests
// numbers.out -> right.in, which is refused and handed to guided repair.
func (s *Service) RunRepairDemo(ctx context.Context, presenter port.RepairPresenter) (*RepairDemo, error) {
	p := s.NewProcess("repair")

	src, err := p.AddStage("numbers", stage.WithRules(stage.GenerateRule{Output: "out", MetaData: metadata.Of[int]()}))
	if err != nil {
		return nil, err
	}
	out, err := src.Outputs().CreatePort("out")
	if err != nil {
		return nil, err
	}

	inputs := make([]*port.InputPort, 0, 2)
	for _, name := range []string{"left", "right"} {
		st, err := p.AddStage(name)
		if err != nil {
			return nil, err
		}
		in, err := st.Inputs().CreatePort("in")
		if err != nil {
			return nil, err
		}
		in.AddPrecondition(port.RequireType[int]())
		inputs = append(inputs, in)
	}
	if err := out.ConnectTo(inputs[0]); err != nil {
		return nil, err
	}

	outcome, err := s.Connect(ctx, ConnectRequest{
		Process:     p,
		Source:      out,
		Destination: inputs[1],
		Presenter:   presenter,
	})
	demo := &RepairDemo{Connect: outcome}
	if err != nil {
		return demo, err
	}

	demo.Diagnosis, err = s.Diagnose(ctx, p)
	return demo, err
}
