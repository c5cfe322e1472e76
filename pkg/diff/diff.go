// Package diff renders line-oriented before/after comparisons.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// Lines compares two line lists and renders them in unified style: a header
// with both labels, then every line prefixed by ' ', '-' or '+'. It returns
// an empty string when the lists are equal.
func Lines(before, after []string, beforeLabel, afterLabel string) string {
	if equal(before, after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, index := dmp.DiffLinesToChars(joinLines(before), joinLines(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), index)

	var buf strings.Builder
	buf.WriteString("--- " + beforeLabel + "\n")
	buf.WriteString("+++ " + afterLabel + "\n")

	written := 2
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if written == maxDiffLines {
				buf.WriteString(truncateMessage + "\n")
				return buf.String()
			}
			buf.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
			written++
		}
	}
	return buf.String()
}

// Changed returns only the added and removed lines of a Lines rendering.
func Changed(rendered string) []string {
	var out []string
	for i, line := range strings.Split(rendered, "\n") {
		if i < 2 || line == "" {
			continue
		}
		if line[0] == '+' || line[0] == '-' {
			out = append(out, line)
		}
	}
	return out
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
