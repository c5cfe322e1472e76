package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	dto "github.com/prometheus/client_model/go"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/portgraph/internal/app/graph"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/metrics"
	"github.com/alexisbeaulieu97/portgraph/internal/tui/components"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func isTerminal(writer any) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func renderTopology(w io.Writer, lines []string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("   (no ports)"))
		return
	}
	for _, line := range lines {
		fmt.Fprintf(w, "   %s\n", line)
	}
}

func renderDiagnosis(w io.Writer, d *graph.Diagnosis) {
	if d == nil {
		return
	}
	view := components.NewDiagnostics(components.DiagnosticsData{Errors: d.Errors, Fixes: d.Fixes}).View()
	fmt.Fprintln(w, indent(view, "   "))
}

func renderDemo(w io.Writer, report *graph.DemoReport) {
	fmt.Fprintln(w, headingStyle.Render("portgraph demo"))
	for i, step := range report.Steps {
		fmt.Fprintln(w)
		fmt.Fprintln(w, stepStyle.Render(fmt.Sprintf("%d. %s", i+1, step.Title)))
		renderTopology(w, step.Topology)
		renderDiagnosis(w, step.Diagnosis)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Received: id=%d name=%s\n", report.Received.ID, report.Received.Name)
}

func renderDiff(w io.Writer, rendered string) {
	if rendered == "" {
		fmt.Fprintln(w, mutedStyle.Render("   topology unchanged"))
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(rendered, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = mutedStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			line = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			line = removedStyle.Render(line)
		}
		fmt.Fprintf(w, "   %s\n", line)
	}
}

func renderRepair(w io.Writer, demo *graph.RepairDemo) {
	fmt.Fprintln(w, headingStyle.Render("portgraph repair"))
	if demo == nil || demo.Connect == nil {
		return
	}
	out := demo.Connect
	fmt.Fprintln(w)
	fmt.Fprintln(w, stepStyle.Render("Choice"))
	choice := out.Repair.Choice.String()
	if out.Repair.Reverted {
		choice += " (reverted)"
	}
	fmt.Fprintf(w, "   %s\n", choice)

	fmt.Fprintln(w)
	fmt.Fprintln(w, stepStyle.Render("Topology"))
	renderDiff(w, out.Diff)

	if demo.Diagnosis != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, stepStyle.Render("Diagnostics"))
		renderDiagnosis(w, demo.Diagnosis)
	}
}

// renderMetrics prints every gathered sample as name{labels} value, sorted.
func renderMetrics(w io.Writer, c *metrics.Collector) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, stepStyle.Render("Metrics"))
	if c == nil || c.Gatherer() == nil {
		fmt.Fprintln(w, mutedStyle.Render("   metrics are disabled"))
		return nil
	}

	families, err := c.Gatherer().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %s", mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m)))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintf(w, "   %s\n", line)
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(kind dto.MetricType, m *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "?"
	}
}
