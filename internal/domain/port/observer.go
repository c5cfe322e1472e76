package port

import (
	"sync"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// ChangeKind names a structural change.
type ChangeKind string

const (
	ChangeAdded        ChangeKind = "added"
	ChangeRemoved      ChangeKind = "removed"
	ChangeRenamed      ChangeKind = "renamed"
	ChangeConnected    ChangeKind = "connected"
	ChangeDisconnected ChangeKind = "disconnected"
	ChangeReordered    ChangeKind = "reordered"
)

// ChangeEvent describes one structural change. For connection changes both
// Output and Input are set and both sides are already consistent when the
// event is dispatched.
type ChangeEvent struct {
	Kind    ChangeKind
	Port    Port
	Output  *OutputPort
	Input   *InputPort
	OldName string
}

// EventType implements ports.DomainEvent.
func (e ChangeEvent) EventType() string {
	switch e.Kind {
	case ChangeAdded:
		return ports.EventPortAdded
	case ChangeRemoved:
		return ports.EventPortRemoved
	case ChangeRenamed:
		return ports.EventPortRenamed
	case ChangeConnected:
		return ports.EventPortConnected
	case ChangeDisconnected:
		return ports.EventPortDisconnected
	default:
		return "port." + string(e.Kind)
	}
}

// Payload implements ports.DomainEvent.
func (e ChangeEvent) Payload() interface{} {
	payload := map[string]interface{}{"kind": string(e.Kind)}
	if e.Port != nil {
		payload["port"] = e.Port.Spec()
	}
	if e.Output != nil {
		payload["output"] = e.Output.Spec()
	}
	if e.Input != nil {
		payload["input"] = e.Input.Spec()
	}
	if e.OldName != "" {
		payload["old_name"] = e.OldName
	}
	return payload
}

// Observer is notified of structural changes on a group. Implementations must
// be comparable (typically pointers) so they can be removed and de-duplicated.
type Observer interface {
	PortsChanged(ev ChangeEvent)
}

// MetaDataChangeListener is notified whenever an input port receives metadata.
// Implementations must be comparable.
type MetaDataChangeListener interface {
	MetaDataChanged(p *InputPort, md *metadata.MetaData)
}

type metaDataEvent struct {
	port *InputPort
	md   *metadata.MetaData
}

func (e metaDataEvent) EventType() string { return ports.EventMetaDataChanged }

func (e metaDataEvent) Payload() interface{} {
	return map[string]interface{}{"port": e.port.Spec(), "metadata": e.md.String()}
}

// listenerList is a copy-on-write list: writers replace the slice, readers
// dispatch over the snapshot they loaded.
type listenerList[L comparable] struct {
	mu   sync.Mutex
	list []L
}

func (l *listenerList[L]) add(v L) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.list {
		if existing == v {
			return
		}
	}
	next := make([]L, 0, len(l.list)+1)
	next = append(next, l.list...)
	l.list = append(next, v)
}

func (l *listenerList[L]) remove(v L) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]L, 0, len(l.list))
	for _, existing := range l.list {
		if existing != v {
			next = append(next, existing)
		}
	}
	l.list = next
}

func (l *listenerList[L]) snapshot() []L {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list
}

// dispatch delivers ev exactly once to every observer of the given lists and
// publishes it through the environment.
func dispatch(env *Environment, ev ChangeEvent, lists ...*listenerList[Observer]) {
	var targets []Observer
	for _, l := range lists {
		if l == nil {
			continue
		}
	next:
		for _, o := range l.snapshot() {
			for _, seen := range targets {
				if seen == o {
					continue next
				}
			}
			targets = append(targets, o)
		}
	}
	for _, o := range targets {
		o.PortsChanged(ev)
	}
	env.publish(ev)
}
