package port

import (
	"fmt"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// OutputPort delivers payloads and metadata to at most one InputPort.
type OutputPort struct {
	base
	destination *InputPort
}

// Destination returns the connected input port or nil.
func (o *OutputPort) Destination() *InputPort {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.destination
}

func (o *OutputPort) setDestination(in *InputPort) {
	o.mu.Lock()
	o.destination = in
	o.mu.Unlock()
}

// IsConnected reports whether a destination is attached.
func (o *OutputPort) IsConnected() bool { return o.Destination() != nil }

// Opposite returns the destination port or nil.
func (o *OutputPort) Opposite() Port {
	if in := o.Destination(); in != nil {
		return in
	}
	return nil
}

// ConnectTo connects o to in. Connecting to the current destination again is
// a successful no-op. It fails without changing any state when either port is
// locked, when the owners live in different scopes, or when either side is
// already connected elsewhere (*CannotConnectError).
func (o *OutputPort) ConnectTo(in *InputPort) error {
	if in == nil {
		return newConnectionError(ErrCodeNotFound, o, "destination is nil")
	}
	env := o.environment()
	for _, p := range []Port{o, in} {
		if p.IsLocked() {
			env.inc(ports.MetricConnections, map[string]string{"result": "locked"})
			return lockedError(p)
		}
	}
	return o.connect(in, false)
}

func (o *OutputPort) connect(in *InputPort, force bool) error {
	env := o.environment()
	if !o.belongs() {
		return newConnectionError(ErrCodeForeignPort, o, "port no longer belongs to a group")
	}
	if !in.belongs() {
		return newConnectionError(ErrCodeForeignPort, in, "port no longer belongs to a group")
	}

	prevDst, prevSrc := o.Destination(), in.Source()
	if prevDst == in && prevSrc == o {
		env.inc(ports.MetricConnections, map[string]string{"result": "noop"})
		return nil
	}

	if !sameScope(o.Owner(), in.Owner()) {
		env.inc(ports.MetricConnections, map[string]string{"result": "scope_mismatch"})
		return newConnectionError(ErrCodeScopeMismatch, o, "cannot connect to %s: ports live in different scopes", in.Spec())
	}

	if !force && (prevDst != nil || prevSrc != nil) {
		env.inc(ports.MetricConnections, map[string]string{"result": "busy"})
		err := &CannotConnectError{Source: o, Destination: in, PreviousDestination: prevDst, PreviousSource: prevSrc}
		switch {
		case prevDst != nil && prevSrc != nil:
			err.Kind = BothBusy
		case prevDst != nil:
			err.Kind = SourceBusy
		default:
			err.Kind = DestinationBusy
		}
		return err
	}

	if prevSrc != nil {
		if err := prevSrc.disconnect(); err != nil {
			return err
		}
	}
	if prevDst != nil {
		if err := o.disconnect(); err != nil {
			return err
		}
	}

	o.setDestination(in)
	in.setSource(o)
	env.inc(ports.MetricConnections, map[string]string{"result": "connected"})
	dispatch(env, ChangeEvent{Kind: ChangeConnected, Port: o, Output: o, Input: in}, o.observerList(), in.observerList())
	return nil
}

// Disconnect removes the connection. It fails if the port is not connected or
// either side is locked.
func (o *OutputPort) Disconnect() error {
	in := o.Destination()
	if in == nil {
		return newConnectionError(ErrCodeNotConnected, o, "port is not connected")
	}
	if o.IsLocked() {
		return lockedError(o)
	}
	if in.IsLocked() {
		return lockedError(in)
	}
	return o.disconnect()
}

// disconnect wipes the downstream payload and metadata, then both sides'
// references, then notifies once.
func (o *OutputPort) disconnect() error {
	in := o.Destination()
	if in == nil {
		return newConnectionError(ErrCodeNotConnected, o, "port is not connected")
	}

	in.Receive(nil)
	in.ReceiveMD(nil)
	o.Clear(ClearData | ClearMetaData | ClearRealMetaData)

	in.setSource(nil)
	o.setDestination(nil)

	env := o.environment()
	env.inc(ports.MetricDisconnections, nil)
	dispatch(env, ChangeEvent{Kind: ChangeDisconnected, Port: o, Output: o, Input: in}, o.observerList(), in.observerList())
	return nil
}

// Deliver is the execution-time propagation point. It stamps provenance on
// traceable payloads, caches obj, forwards it to the destination and refreshes
// the real metadata. Delivering an ExecutionBound payload while the owner is
// not executing panics.
func (o *OutputPort) Deliver(obj any) {
	owner := o.Owner()
	if eb, ok := obj.(ExecutionBound); ok && eb.RequiresExecution() {
		if owner == nil || !owner.Executing() {
			panic(fmt.Sprintf("port %s: %T may only be delivered during stage execution", o.Spec(), obj))
		}
	}

	if tr, ok := obj.(Traceable); ok && owner != nil {
		tr.AppendProvenance(Provenance{Stage: owner.Name(), Port: o.Name()})
		if tr.Source() == "" {
			tr.SetSource(owner.Name())
		}
	}
	if pm, ok := obj.(ProducerMarker); ok {
		pm.SetLastProducer(o.Spec())
	}

	o.SetData(obj)
	if in := o.Destination(); in != nil {
		in.Receive(obj)
	}
	o.refreshRealMetaData(obj)
	o.environment().inc(ports.MetricDeliveries, map[string]string{"kind": "data"})
}

// DeliverMD stores md and forwards it to the destination, if any.
func (o *OutputPort) DeliverMD(md *metadata.MetaData) {
	o.setMetaData(md)
	if in := o.Destination(); in != nil {
		in.ReceiveMD(md)
	}
	o.environment().inc(ports.MetricDeliveries, map[string]string{"kind": "metadata"})
}

// Description describes what the port currently delivers.
func (o *OutputPort) Description() string {
	md := o.MetaData()
	if md == nil {
		return "delivers nothing yet"
	}
	return "delivers " + md.String()
}

