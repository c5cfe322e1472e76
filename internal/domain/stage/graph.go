package stage

import (
	"fmt"
	"sort"
)

// dependencyGraph orders stages so that every stage comes after the stages
// feeding its inputs.
type dependencyGraph struct {
	nodes    map[string]struct{}
	incoming map[string]map[string]struct{}
	outgoing map[string]map[string]struct{}
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		nodes:    make(map[string]struct{}),
		incoming: make(map[string]map[string]struct{}),
		outgoing: make(map[string]map[string]struct{}),
	}
}

func (g *dependencyGraph) addNode(name string) {
	if _, exists := g.nodes[name]; exists {
		return
	}
	g.nodes[name] = struct{}{}
	g.incoming[name] = make(map[string]struct{})
	g.outgoing[name] = make(map[string]struct{})
}

// addEdge records that consumer reads from producer.
func (g *dependencyGraph) addEdge(consumer, producer string) {
	g.addNode(consumer)
	g.addNode(producer)
	g.outgoing[consumer][producer] = struct{}{}
	g.incoming[producer][consumer] = struct{}{}
}

// cycle returns one cycle, or nil when the graph is acyclic.
func (g *dependencyGraph) cycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path, found []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, producer := range sortedKeys(g.outgoing[node]) {
			if !visited[producer] {
				if dfs(producer) {
					return true
				}
			} else if onStack[producer] {
				idx := len(path) - 1
				for idx >= 0 && path[idx] != producer {
					idx--
				}
				if idx >= 0 {
					found = append([]string{}, path[idx:]...)
					return true
				}
			}
		}

		onStack[node] = false
		path = path[:len(path)-1]
		return false
	}

	for _, node := range sortedKeys(g.nodes) {
		if !visited[node] && dfs(node) {
			break
		}
	}
	return found
}

// order returns the nodes producers first; ties are broken by name.
func (g *dependencyGraph) order() ([]string, error) {
	remaining := make(map[string]int, len(g.nodes))
	queue := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		remaining[node] = len(g.outgoing[node])
		if remaining[node] == 0 {
			queue = append(queue, node)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, consumer := range sortedKeys(g.incoming[current]) {
			remaining[consumer]--
			if remaining[consumer] == 0 {
				queue = append(queue, consumer)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if c := g.cycle(); len(c) > 0 {
			return nil, ErrCircularDependency{Cycle: c}
		}
		return nil, fmt.Errorf("stage graph contains unresolved nodes")
	}
	return result, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
