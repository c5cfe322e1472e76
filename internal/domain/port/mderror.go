package port

import (
	"fmt"
	"sort"
)

// Severity grades a MetaDataError.
type Severity int

const (
	SeverityInformation Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Well-known MetaDataError codes.
const (
	CodeInputMissing       = "input_missing"
	CodeWrongType          = "wrong_type"
	CodeNeedsConversion    = "needs_conversion"
	CodePreconditionFailed = "precondition_failed"
)

// QuickFix is a suggested repair attached to a MetaDataError.
type QuickFix struct {
	Name string
	// Rating orders fixes; higher ratings are offered first.
	Rating int
	// InsertsStage names the stage type the fix would add to the pipeline,
	// empty when it inserts none.
	InsertsStage string
	Apply        func() error
}

// QuickFixFilter decides whether a fix may be offered. It returns true to keep.
type QuickFixFilter func(QuickFix) bool

// DisallowStageTypes returns a filter dropping fixes that would insert any of
// the given stage types.
func DisallowStageTypes(types ...string) QuickFixFilter {
	blocked := make(map[string]struct{}, len(types))
	for _, t := range types {
		blocked[t] = struct{}{}
	}
	return func(f QuickFix) bool {
		if f.InsertsStage == "" {
			return true
		}
		_, deny := blocked[f.InsertsStage]
		return !deny
	}
}

// MetaDataError is an advisory problem recorded on a port during metadata
// checking. It is accumulated, never thrown.
type MetaDataError struct {
	Severity   Severity
	Code       string
	Message    string
	Port       Port
	QuickFixes []QuickFix
}

// NewMetaDataError builds an error attached to p.
func NewMetaDataError(p Port, severity Severity, code, format string, args ...any) *MetaDataError {
	return &MetaDataError{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Port:     p,
	}
}

// WithQuickFixes returns the error with the fixes appended.
func (e *MetaDataError) WithQuickFixes(fixes ...QuickFix) *MetaDataError {
	e.QuickFixes = append(e.QuickFixes, fixes...)
	return e
}

func (e *MetaDataError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Port != nil {
		return fmt.Sprintf("%s at %s: %s", e.Severity, e.Port.Spec(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

func (e *MetaDataError) filtered(filter QuickFixFilter) *MetaDataError {
	if filter == nil || len(e.QuickFixes) == 0 {
		return e
	}
	kept := make([]QuickFix, 0, len(e.QuickFixes))
	for _, f := range e.QuickFixes {
		if filter(f) {
			kept = append(kept, f)
		}
	}
	c := *e
	c.QuickFixes = kept
	return &c
}

// PortQuickFix pairs a quick fix with the error that offered it.
type PortQuickFix struct {
	Fix   QuickFix
	Error *MetaDataError
}

// SortQuickFixes collects, orders and de-duplicates the fixes offered by errs.
// Fixes are ordered by rating (highest first) then name; duplicates are fixes
// with the same name for the same port.
func SortQuickFixes(errs []*MetaDataError) []PortQuickFix {
	var out []PortQuickFix
	seen := make(map[string]struct{})
	for _, e := range errs {
		if e == nil {
			continue
		}
		spec := ""
		if e.Port != nil {
			spec = e.Port.Spec()
		}
		for _, f := range e.QuickFixes {
			key := spec + "\x00" + f.Name
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, PortQuickFix{Fix: f, Error: e})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Fix.Rating != out[j].Fix.Rating {
			return out[i].Fix.Rating > out[j].Fix.Rating
		}
		return out[i].Fix.Name < out[j].Fix.Name
	})
	return out
}

// CountSeverity returns how many errors carry the given severity.
func CountSeverity(errs []*MetaDataError, s Severity) int {
	n := 0
	for _, e := range errs {
		if e != nil && e.Severity == s {
			n++
		}
	}
	return n
}
