package port

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// kind constrains Group to the two concrete port types.
type kind interface {
	*InputPort | *OutputPort
	Port
	core() *base
}

// Group is the ordered, name-indexed collection of one direction of ports of
// a single owner. It is the only factory for its ports.
type Group[P kind] struct {
	own     Owner
	label   string
	newPort func(g groupHandle, name string, simulatesStack bool) P

	mu       sync.RWMutex
	ports    []P
	byName   map[string]P
	byID     map[uint64]P
	extender Extender

	obs listenerList[Observer]
}

// InputPorts is the group of input ports of a stage.
type InputPorts = Group[*InputPort]

// OutputPorts is the group of output ports of a stage.
type OutputPorts = Group[*OutputPort]

// NewInputPorts creates an empty input group owned by owner.
func NewInputPorts(owner Owner) *InputPorts {
	return newGroup(owner, "input", func(g groupHandle, name string, stack bool) *InputPort {
		p := &InputPort{}
		p.init(g, name, stack)
		return p
	})
}

// NewOutputPorts creates an empty output group owned by owner.
func NewOutputPorts(owner Owner) *OutputPorts {
	return newGroup(owner, "output", func(g groupHandle, name string, stack bool) *OutputPort {
		p := &OutputPort{}
		p.init(g, name, stack)
		return p
	})
}

func newGroup[P kind](owner Owner, label string, factory func(groupHandle, string, bool) P) *Group[P] {
	return &Group[P]{
		own:     owner,
		label:   label,
		newPort: factory,
		byName:  make(map[string]P),
		byID:    make(map[uint64]P),
	}
}

func (g *Group[P]) owner() Owner { return g.own }

func (g *Group[P]) holds(id uint64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byID[id]
	return ok
}

func (g *Group[P]) observers() *listenerList[Observer] { return &g.obs }

func (g *Group[P]) environment() *Environment { return environmentOf(g.own) }

// Owner returns the stage owning the group.
func (g *Group[P]) Owner() Owner { return g.own }

// CreateOption tunes CreatePort.
type CreateOption func(*createOptions)

type createOptions struct {
	detached       bool
	simulatesStack bool
}

// Detached creates the port without adding it; call AddPort later.
func Detached() CreateOption {
	return func(o *createOptions) { o.detached = true }
}

// SimulatingStack marks the port as taking part in stack-style exchange.
func SimulatingStack() CreateOption {
	return func(o *createOptions) { o.simulatesStack = true }
}

// CreatePort creates a port named name and, unless Detached is given, appends
// it to the group. Names must be unique within the group.
func (g *Group[P]) CreatePort(name string, opts ...CreateOption) (P, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	var zero P
	if err := validateName(nil, name); err != nil {
		return zero, err
	}

	p := g.newPort(g, name, o.simulatesStack)
	if o.detached {
		return p, nil
	}

	g.mu.Lock()
	if _, exists := g.byName[name]; exists {
		g.mu.Unlock()
		return zero, g.duplicate(name)
	}
	g.insertLocked(p)
	g.mu.Unlock()

	dispatch(g.environment(), ChangeEvent{Kind: ChangeAdded, Port: p}, &g.obs)
	return p, nil
}

// AddPort appends a port created detached by this group.
func (g *Group[P]) AddPort(p P) error {
	var zero P
	if p == zero {
		return newConnectionError(ErrCodeNotFound, nil, "cannot add a nil port")
	}
	if p.core().group != groupHandle(g) {
		return newConnectionError(ErrCodeForeignPort, p, "port was created by another group")
	}

	name := p.Name()
	g.mu.Lock()
	if _, held := g.byID[p.ID()]; held {
		g.mu.Unlock()
		return newConnectionError(ErrCodeDuplicate, p, "port is already part of the group")
	}
	if _, exists := g.byName[name]; exists {
		g.mu.Unlock()
		return g.duplicate(name)
	}
	g.insertLocked(p)
	g.mu.Unlock()

	dispatch(g.environment(), ChangeEvent{Kind: ChangeAdded, Port: p}, &g.obs)
	return nil
}

// createBatch adds all names or none of them.
func (g *Group[P]) createBatch(names []string, simulatesStack bool) ([]P, error) {
	for _, name := range names {
		if err := validateName(nil, name); err != nil {
			return nil, err
		}
	}

	created := make([]P, 0, len(names))
	g.mu.Lock()
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, exists := g.byName[name]; exists {
			g.mu.Unlock()
			return nil, g.duplicate(name)
		}
		if _, dup := seen[name]; dup {
			g.mu.Unlock()
			return nil, g.duplicate(name)
		}
		seen[name] = struct{}{}
	}
	next := make([]P, 0, len(g.ports)+len(names))
	next = append(next, g.ports...)
	for _, name := range names {
		p := g.newPort(g, name, simulatesStack)
		next = append(next, p)
		g.byName[name] = p
		g.byID[p.ID()] = p
		created = append(created, p)
	}
	g.ports = next
	g.mu.Unlock()

	env := g.environment()
	for _, p := range created {
		dispatch(env, ChangeEvent{Kind: ChangeAdded, Port: p}, &g.obs)
	}
	return created, nil
}

func (g *Group[P]) insertLocked(p P) {
	next := make([]P, 0, len(g.ports)+1)
	next = append(next, g.ports...)
	g.ports = append(next, p)
	g.byName[p.Name()] = p
	g.byID[p.ID()] = p
}

func (g *Group[P]) duplicate(name string) error {
	err := newConnectionError(ErrCodeDuplicate, nil, "%s port %q already exists", g.label, name)
	if g.own != nil {
		err.Port = g.own.Name() + "." + name
	}
	return err
}

// PortByName returns the port called name. When no port matches but the name
// fits the registered extender's naming scheme, the extender is asked to grow
// the group and the lookup is retried once.
func (g *Group[P]) PortByName(name string) (P, bool) {
	if p, ok := g.lookup(name); ok {
		return p, true
	}

	var zero P
	ext := g.Extender()
	if ext == nil {
		return zero, false
	}
	idx, ok := ParseIndexedName(ext.Prefix(), name)
	if !ok {
		return zero, false
	}

	log := g.environment().Logger()
	if err := ext.EnsureAtLeast(idx); err != nil {
		log.Warn(context.Background(), "port extension failed", "group", g.label, "name", name, "error", err)
		return zero, false
	}
	if p, ok := g.lookup(name); ok {
		return p, true
	}
	log.Warn(context.Background(), "port still missing after extension", "group", g.label, "name", name)
	return zero, false
}

func (g *Group[P]) lookup(name string) (P, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.byName[name]
	return p, ok
}

// PortByIndex returns the port at position i.
func (g *Group[P]) PortByIndex(i int) (P, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if i < 0 || i >= len(g.ports) {
		var zero P
		return zero, newConnectionError(ErrCodeNotFound, nil, "%s port index %d out of range [0,%d)", g.label, i, len(g.ports))
	}
	return g.ports[i], nil
}

// AllPorts returns a snapshot of the ports in order. The slice must not be
// modified.
func (g *Group[P]) AllPorts() []P {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ports
}

// PortNames lists the port names in order.
func (g *Group[P]) PortNames() []string {
	ps := g.AllPorts()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of ports.
func (g *Group[P]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ports)
}

// NumberOfConnectedPorts counts connected ports.
func (g *Group[P]) NumberOfConnectedPorts() int {
	n := 0
	for _, p := range g.AllPorts() {
		if p.IsConnected() {
			n++
		}
	}
	return n
}

// ContainsPort reports whether p is part of this group. Identity, not name,
// decides.
func (g *Group[P]) ContainsPort(p P) bool {
	var zero P
	if p == zero {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	held, ok := g.byID[p.ID()]
	return ok && held == p
}

// RemovePort disconnects p and removes it. Ports of other groups and locked
// ports are rejected.
func (g *Group[P]) RemovePort(p P) error {
	if !g.ContainsPort(p) {
		var zero P
		if p == zero {
			return newConnectionError(ErrCodeForeignPort, nil, "cannot remove a nil port")
		}
		return newConnectionError(ErrCodeForeignPort, p, "port is not part of this %s group", g.label)
	}
	if p.IsLocked() {
		return lockedError(p)
	}
	if p.IsConnected() {
		if err := p.Disconnect(); err != nil {
			return fmt.Errorf("remove %s: %w", p.Spec(), err)
		}
	}

	g.mu.Lock()
	if held, ok := g.byID[p.ID()]; !ok || held != p {
		g.mu.Unlock()
		return nil
	}
	next := make([]P, 0, len(g.ports))
	for _, existing := range g.ports {
		if existing != p {
			next = append(next, existing)
		}
	}
	g.ports = next
	delete(g.byName, p.Name())
	delete(g.byID, p.ID())
	g.mu.Unlock()

	dispatch(g.environment(), ChangeEvent{Kind: ChangeRemoved, Port: p}, &g.obs)
	return nil
}

// RemoveAll removes every port, re-reading the group size each round since
// observers may add or remove ports while it runs.
func (g *Group[P]) RemoveAll() error {
	for {
		ps := g.AllPorts()
		if len(ps) == 0 {
			return nil
		}
		if err := g.RemovePort(ps[len(ps)-1]); err != nil {
			return err
		}
	}
}

// RenamePort gives p a new unique name. Connections are unaffected.
func (g *Group[P]) RenamePort(p P, name string) error {
	if !g.ContainsPort(p) {
		return newConnectionError(ErrCodeForeignPort, nil, "port is not part of this %s group", g.label)
	}
	if err := validateName(p, name); err != nil {
		return err
	}

	old := p.Name()
	if old == name {
		return nil
	}

	g.mu.Lock()
	if _, exists := g.byName[name]; exists {
		g.mu.Unlock()
		return g.duplicate(name)
	}
	delete(g.byName, old)
	g.byName[name] = p
	p.core().setName(name)
	g.mu.Unlock()

	dispatch(g.environment(), ChangeEvent{Kind: ChangeRenamed, Port: p, OldName: old}, &g.obs)
	return nil
}

// PushDown moves p to the end of the ordering.
func (g *Group[P]) PushDown(p P) error {
	if !g.ContainsPort(p) {
		return newConnectionError(ErrCodeForeignPort, nil, "port is not part of this %s group", g.label)
	}

	g.mu.Lock()
	if n := len(g.ports); n > 0 && g.ports[n-1] == p {
		g.mu.Unlock()
		return nil
	}
	next := make([]P, 0, len(g.ports))
	for _, existing := range g.ports {
		if existing != p {
			next = append(next, existing)
		}
	}
	g.ports = append(next, p)
	g.mu.Unlock()

	dispatch(g.environment(), ChangeEvent{Kind: ChangeReordered, Port: p}, &g.obs)
	return nil
}

// DisconnectAll disconnects every connected port.
func (g *Group[P]) DisconnectAll() error {
	return g.DisconnectAllBut(nil)
}

// DisconnectAllBut disconnects every port whose opposite belongs to an owner
// outside exceptions. It works on a snapshot and keeps going after failures;
// all failures are returned joined.
func (g *Group[P]) DisconnectAllBut(exceptions []Owner) error {
	var errs []error
	for _, p := range g.AllPorts() {
		opp := p.Opposite()
		if opp == nil {
			continue
		}
		if ownedByAny(opp, exceptions) {
			continue
		}
		if err := p.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ownedByAny(p Port, owners []Owner) bool {
	o := p.Owner()
	for _, candidate := range owners {
		if candidate == o {
			return true
		}
	}
	return false
}

// RegisterExtender installs the extender consulted by PortByName.
func (g *Group[P]) RegisterExtender(e Extender) {
	g.mu.Lock()
	g.extender = e
	g.mu.Unlock()
}

// Extender returns the registered extender, if any.
func (g *Group[P]) Extender() Extender {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.extender
}

// AddObserver subscribes o to structural changes of the group, including
// connection changes of its ports.
func (g *Group[P]) AddObserver(o Observer) {
	if o != nil {
		g.obs.add(o)
	}
}

// RemoveObserver unsubscribes o.
func (g *Group[P]) RemoveObserver(o Observer) {
	if o != nil {
		g.obs.remove(o)
	}
}

// Errors aggregates the metadata errors of all ports in port order.
func (g *Group[P]) Errors() []*MetaDataError {
	var out []*MetaDataError
	for _, p := range g.AllPorts() {
		out = append(out, p.Errors()...)
	}
	return out
}

// Clear applies Clear(flags) to every port.
func (g *Group[P]) Clear(flags ClearFlag) {
	for _, p := range g.AllPorts() {
		p.Clear(flags)
	}
}

// FreeMemory drops the strong payload reference of every port.
func (g *Group[P]) FreeMemory() {
	for _, p := range g.AllPorts() {
		p.FreeMemory()
	}
}

// CollectQuickFixes returns the quick fixes of all errors in the group,
// deduplicated and best-rated first.
func (g *Group[P]) CollectQuickFixes() []PortQuickFix {
	return SortQuickFixes(g.Errors())
}
