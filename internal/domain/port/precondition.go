package port

import (
	"fmt"
	"reflect"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
)

// Precondition validates the metadata arriving at an input port. Check records
// problems on the port with AddError; a returned error (or a panic) means the
// precondition itself failed and is downgraded to a warning by the port.
type Precondition interface {
	Check(p *InputPort, md *metadata.MetaData) error
	IsCompatible(md *metadata.MetaData, level metadata.CompatibilityLevel, conv metadata.Convertibility) bool
	// Description is the human-readable requirement shown to users.
	Description() string
	// ExpectedMetaData is what an ideal input would look like, or nil.
	ExpectedMetaData() *metadata.MetaData
}

// FixProvider contributes extra quick fixes to a type mismatch.
type FixProvider func(p *InputPort, md *metadata.MetaData) []QuickFix

// TypePrecondition requires the effective metadata to describe a given type.
type TypePrecondition struct {
	required reflect.Type
	optional bool
	fixes    FixProvider
}

// TypeOption configures a TypePrecondition.
type TypeOption func(*TypePrecondition)

// Optional makes missing input acceptable.
func Optional() TypeOption {
	return func(tp *TypePrecondition) { tp.optional = true }
}

// WithFixes adds quick fixes to wrong-type errors.
func WithFixes(fp FixProvider) TypeOption {
	return func(tp *TypePrecondition) { tp.fixes = fp }
}

// NewTypePrecondition requires metadata describing t.
func NewTypePrecondition(t reflect.Type, opts ...TypeOption) *TypePrecondition {
	tp := &TypePrecondition{required: t}
	for _, opt := range opts {
		opt(tp)
	}
	return tp
}

// RequireType requires metadata describing T.
func RequireType[T any](opts ...TypeOption) *TypePrecondition {
	return NewTypePrecondition(reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// Required returns the required type.
func (tp *TypePrecondition) Required() reflect.Type { return tp.required }

// Check implements Precondition.
func (tp *TypePrecondition) Check(p *InputPort, md *metadata.MetaData) error {
	if md == nil {
		if tp.optional {
			return nil
		}
		err := NewMetaDataError(p, SeverityError, CodeInputMissing, "input missing: %s expected", typeName(tp.required))
		p.AddError(err.WithQuickFixes(connectFixes(p, tp.required)...))
		return nil
	}

	conv := p.environment().Converters()
	if md.IsCompatible(tp.required, metadata.LevelStrict, conv) {
		return nil
	}
	if md.IsCompatible(tp.required, metadata.LevelLenient, conv) {
		p.AddError(NewMetaDataError(p, SeverityWarning, CodeNeedsConversion,
			"%s will be converted to %s", md.TypeName(), typeName(tp.required)))
		return nil
	}

	err := NewMetaDataError(p, SeverityError, CodeWrongType,
		"expected %s but received %s", typeName(tp.required), md.TypeName())
	if tp.fixes != nil {
		err.WithQuickFixes(tp.fixes(p, md)...)
	}
	p.AddError(err)
	return nil
}

// IsCompatible implements Precondition.
func (tp *TypePrecondition) IsCompatible(md *metadata.MetaData, level metadata.CompatibilityLevel, conv metadata.Convertibility) bool {
	if md == nil {
		return tp.optional
	}
	return md.IsCompatible(tp.required, level, conv)
}

// Description implements Precondition.
func (tp *TypePrecondition) Description() string {
	if tp.optional {
		return fmt.Sprintf("optional %s", typeName(tp.required))
	}
	return fmt.Sprintf("requires %s", typeName(tp.required))
}

// ExpectedMetaData implements Precondition.
func (tp *TypePrecondition) ExpectedMetaData() *metadata.MetaData {
	return metadata.New(tp.required)
}

// CheckFunc adapts a function into a Precondition that accepts any metadata
// for compatibility purposes.
type CheckFunc struct {
	Desc string
	Fn   func(p *InputPort, md *metadata.MetaData) error
}

// Check implements Precondition.
func (c CheckFunc) Check(p *InputPort, md *metadata.MetaData) error {
	if c.Fn == nil {
		return nil
	}
	return c.Fn(p, md)
}

// IsCompatible implements Precondition.
func (CheckFunc) IsCompatible(*metadata.MetaData, metadata.CompatibilityLevel, metadata.Convertibility) bool {
	return true
}

// Description implements Precondition.
func (c CheckFunc) Description() string { return c.Desc }

// ExpectedMetaData implements Precondition.
func (CheckFunc) ExpectedMetaData() *metadata.MetaData { return nil }

// connectFixes suggests connecting p to free outputs of other stages in the
// same scope. Outputs already known to deliver the required type rank first.
func connectFixes(p *InputPort, required reflect.Type) []QuickFix {
	finder, ok := scopeOf(p.Owner()).(OutputFinder)
	if !ok {
		return nil
	}
	var fixes []QuickFix
	for _, out := range finder.FreeOutputs() {
		if out == nil || out.Owner() == p.Owner() {
			continue
		}
		rating := 1
		if md := out.MetaData(); md != nil {
			if !md.IsCompatible(required, metadata.LevelStrict, nil) {
				continue
			}
			rating = 2
		}
		out := out
		fixes = append(fixes, QuickFix{
			Name:   fmt.Sprintf("Connect to %s", out.Spec()),
			Rating: rating,
			Apply:  func() error { return out.ConnectTo(p) },
		})
	}
	return fixes
}
