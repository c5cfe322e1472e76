package graph

import (
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
)

// Snapshot lists the topology of p, one sorted line per port: connected
// outputs as "a.out -> b.in", unconnected ports marked as free.
// Connected inputs are covered by their source's line.
func Snapshot(p *stage.Process) []string {
	if p == nil {
		return nil
	}
	var lines []string
	for _, s := range p.Stages() {
		for _, out := range s.Outputs().AllPorts() {
			if dst := out.Destination(); dst != nil {
				lines = append(lines, fmt.Sprintf("%s -> %s", out.Spec(), dst.Spec()))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s (free output)", out.Spec()))
		}
		for _, in := range s.Inputs().AllPorts() {
			if !in.IsConnected() {
				lines = append(lines, fmt.Sprintf("%s (free input)", in.Spec()))
			}
		}
	}
	sort.Strings(lines)
	return lines
}
