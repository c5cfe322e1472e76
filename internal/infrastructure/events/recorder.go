package events

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// Recorded is a captured event.
type Recorded struct {
	Type    string
	Payload map[string]interface{}
}

// Recorder keeps the events it receives in arrival order. Its Handle method
// is a ports.EventHandler.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// Handle records event.
func (r *Recorder) Handle(_ context.Context, event ports.DomainEvent) error {
	rec := Recorded{Type: event.EventType()}
	if payload, ok := event.Payload().(map[string]interface{}); ok {
		rec.Payload = payload
	}
	r.mu.Lock()
	r.events = append(r.events, rec)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
