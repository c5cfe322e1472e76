package components

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// DiagnosticsData aggregates the advisory state of a process for rendering.
type DiagnosticsData struct {
	Errors []*port.MetaDataError
	Fixes  []port.PortQuickFix
}

// Diagnostics renders metadata errors and the quick fixes they offer.
type Diagnostics struct {
	data DiagnosticsData
}

// NewDiagnostics creates a new Diagnostics component.
func NewDiagnostics(data DiagnosticsData) Diagnostics {
	return Diagnostics{data: data}
}

// View renders the diagnostics. A clean process renders a single line.
func (d Diagnostics) View() string {
	if len(d.data.Errors) == 0 {
		return "✓ no metadata problems"
	}

	lines := []string{fmt.Sprintf("Errors: %d, warnings: %d, information: %d",
		port.CountSeverity(d.data.Errors, port.SeverityError),
		port.CountSeverity(d.data.Errors, port.SeverityWarning),
		port.CountSeverity(d.data.Errors, port.SeverityInformation),
	)}
	for _, e := range d.data.Errors {
		if e == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s %s", SeverityIcon(e.Severity), e.Error()))
	}

	if len(d.data.Fixes) > 0 {
		lines = append(lines, "Quick fixes:")
		for _, f := range d.data.Fixes {
			lines = append(lines, fmt.Sprintf("  • %s (rating %d)", f.Fix.Name, f.Fix.Rating))
		}
	}

	return strings.Join(lines, "\n")
}

// SeverityIcon returns the glyph for a severity.
func SeverityIcon(s port.Severity) string {
	switch s {
	case port.SeverityError:
		return "✗"
	case port.SeverityWarning:
		return "!"
	default:
		return "i"
	}
}
