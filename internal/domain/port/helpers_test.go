package port

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

type testScope struct {
	id   string
	env  *Environment
	free []*OutputPort
}

func (s *testScope) ScopeID() string { return s.id }
func (s *testScope) Environment() *Environment { return s.env }
func (s *testScope) FreeOutputs() []*OutputPort { return s.free }

func newTestScope(id string, opts ...EnvOption) *testScope {
	return &testScope{id: id, env: NewEnvironment(opts...)}
}

type testStage struct {
	name      string
	scope     Scope
	executing bool
	in        *InputPorts
	out       *OutputPorts
}

func (s *testStage) Name() string { return s.name }
func (s *testStage) Scope() Scope { return s.scope }
func (s *testStage) Executing() bool { return s.executing }

func newTestStage(name string, scope Scope) *testStage {
	s := &testStage{name: name, scope: scope}
	s.in = NewInputPorts(s)
	s.out = NewOutputPorts(s)
	return s
}

func (s *testStage) input(t testingT, name string) *InputPort {
	t.Helper()
	p, err := s.in.CreatePort(name)
	if err != nil {
		t.Fatalf("create input %s: %v", name, err)
	}
	return p
}

func (s *testStage) output(t testingT, name string) *OutputPort {
	t.Helper()
	p, err := s.out.CreatePort(name)
	if err != nil {
		t.Fatalf("create output %s: %v", name, err)
	}
	return p
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// recordingObserver counts events by kind.
type recordingObserver struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *recordingObserver) PortsChanged(ev ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingObserver) count(kind ChangeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type mapCache struct {
	mu      sync.Mutex
	entries map[uint64]any
}

func newMapCache() *mapCache { return &mapCache{entries: map[uint64]any{}} }

func (c *mapCache) Put(key uint64, value any) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *mapCache) Get(key uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Remove(key uint64) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// stringerConv converts ints to strings.
type stringerConv struct{}

func (stringerConv) CanConvert(from, to reflect.Type) bool {
	return from == reflect.TypeOf((*int)(nil)).Elem() && to == reflect.TypeOf((*string)(nil)).Elem()
}

func (stringerConv) Convert(value any, to reflect.Type) (any, error) {
	return strings.Repeat("x", value.(int)), nil
}

type counterMetrics struct {
	mu       sync.Mutex
	counters map[string]int
}

func newCounterMetrics() *counterMetrics { return &counterMetrics{counters: map[string]int{}} }

func (m *counterMetrics) IncCounter(_ context.Context, name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := name
	for _, k := range []string{"result", "kind", "severity", "tier", "choice"} {
		if v, ok := labels[k]; ok {
			key += "{" + v + "}"
		}
	}
	m.counters[key]++
}

func (m *counterMetrics) SetGauge(context.Context, string, float64, map[string]string) {}
func (m *counterMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *counterMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

var _ ports.MetricsCollector = (*counterMetrics)(nil)
