package port

import "sync"

// Provenance records one hop of a payload through the graph.
type Provenance struct {
	Stage string
	Port  string
}

// Traceable payloads accumulate the stages that produced them and carry a
// logical source name.
type Traceable interface {
	AppendProvenance(p Provenance)
	Source() string
	SetSource(name string)
}

// ProducerMarker payloads remember the last port that delivered them.
type ProducerMarker interface {
	SetLastProducer(spec string)
}

// ExecutionBound payloads may only be delivered while their producing stage is
// executing. Delivering one elsewhere is a programming error.
type ExecutionBound interface {
	RequiresExecution() bool
}

// Trace is an embeddable implementation of Traceable and ProducerMarker.
type Trace struct {
	mu           sync.Mutex
	history      []Provenance
	source       string
	lastProducer string
}

// AppendProvenance implements Traceable.
func (t *Trace) AppendProvenance(p Provenance) {
	t.mu.Lock()
	t.history = append(t.history, p)
	t.mu.Unlock()
}

// History returns a copy of the recorded hops, oldest first.
func (t *Trace) History() []Provenance {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Provenance(nil), t.history...)
}

// Source implements Traceable.
func (t *Trace) Source() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.source
}

// SetSource implements Traceable.
func (t *Trace) SetSource(name string) {
	t.mu.Lock()
	t.source = name
	t.mu.Unlock()
}

// SetLastProducer implements ProducerMarker.
func (t *Trace) SetLastProducer(spec string) {
	t.mu.Lock()
	t.lastProducer = spec
	t.mu.Unlock()
}

// LastProducer returns the spec of the last delivering port.
func (t *Trace) LastProducer() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastProducer
}
