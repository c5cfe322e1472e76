package stage

import (
	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
)

// Rule derives output metadata from input metadata without executing the
// stage.
type Rule interface {
	Transform(s *Stage) error
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(s *Stage) error

// Transform implements Rule.
func (f RuleFunc) Transform(s *Stage) error { return f(s) }

// PassThroughRule forwards the metadata of one input to one output,
// optionally adding annotations.
type PassThroughRule struct {
	Input       string
	Output      string
	Annotations map[string]string
}

// Transform implements Rule.
func (r PassThroughRule) Transform(s *Stage) error {
	in, err := s.Input(r.Input)
	if err != nil {
		return err
	}
	out, err := s.Output(r.Output)
	if err != nil {
		return err
	}

	md := in.MetaData()
	for k, v := range r.Annotations {
		md = md.WithAnnotation(k, v)
	}
	out.DeliverMD(md.WithGeneratedBy(out.Spec()))
	return nil
}

// GenerateRule announces fixed metadata on an output, e.g. for sources.
type GenerateRule struct {
	Output   string
	MetaData *metadata.MetaData
}

// Transform implements Rule.
func (r GenerateRule) Transform(s *Stage) error {
	out, err := s.Output(r.Output)
	if err != nil {
		return err
	}
	out.DeliverMD(r.MetaData.WithGeneratedBy(out.Spec()))
	return nil
}
