package port

import (
	"sync"
	"sync/atomic"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// Port is the contract shared by input and output ports.
type Port interface {
	// ID is a stable identity, unique for the process lifetime.
	ID() uint64
	Name() string
	// Spec returns the display identifier "<stage>.<port>".
	Spec() string
	Owner() Owner
	SimulatesStack() bool

	IsConnected() bool
	// Opposite returns the port on the other end of the connection or nil.
	Opposite() Port
	Disconnect() error

	RawData() any
	SetData(obj any)
	FreeMemory()

	MetaData() *metadata.MetaData
	RealMetaData() *metadata.MetaData

	AddError(e *MetaDataError)
	Errors() []*MetaDataError
	Clear(flags ClearFlag)

	Lock() bool
	Unlock()
	IsLocked() bool

	Description() string
}

// ClearFlag selects which sub-states Clear wipes.
type ClearFlag uint8

const (
	ClearErrors ClearFlag = 1 << iota
	ClearMetaData
	ClearRealMetaData
	ClearData
	ClearAll = ClearErrors | ClearMetaData | ClearRealMetaData | ClearData
)

var portIDs atomic.Uint64

// groupHandle is the non-owning handle a port keeps to the group that
// created it.
type groupHandle interface {
	owner() Owner
	holds(id uint64) bool
	observers() *listenerList[Observer]
}

type base struct {
	id             uint64
	group          groupHandle
	simulatesStack bool
	locked         atomic.Bool

	mu     sync.RWMutex
	name   string
	errors []*MetaDataError
	data   any
	md     *metadata.MetaData
	realMD *metadata.MetaData
}

func (b *base) init(g groupHandle, name string, simulatesStack bool) {
	if g == nil {
		panic("port: ports can only be created by their group")
	}
	b.id = portIDs.Add(1)
	b.group = g
	b.simulatesStack = simulatesStack
	b.name = name
}

func (b *base) core() *base { return b }

// ID returns the port identity.
func (b *base) ID() uint64 { return b.id }

// Name returns the port name.
func (b *base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

func (b *base) setName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

// Owner resolves the owning stage through the group handle.
func (b *base) Owner() Owner {
	if b.group == nil {
		return nil
	}
	return b.group.owner()
}

// Spec returns "<stage>.<port>".
func (b *base) Spec() string {
	if o := b.Owner(); o != nil {
		return o.Name() + "." + b.Name()
	}
	return b.Name()
}

// SimulatesStack reports whether the port takes part in stack-style exchange.
func (b *base) SimulatesStack() bool { return b.simulatesStack }

func (b *base) environment() *Environment {
	return environmentOf(b.Owner())
}

func (b *base) logger() ports.Logger {
	return b.environment().Logger().With("component", "port", "port", b.Spec())
}

// RawData returns the current payload without failing: the strong slot first,
// then the secondary cache if the entry has not been reclaimed.
func (b *base) RawData() any {
	b.mu.RLock()
	data := b.data
	b.mu.RUnlock()

	env := b.environment()
	if data != nil {
		env.inc(ports.MetricCacheLookups, map[string]string{"tier": "strong"})
		return data
	}
	if c := env.Cache(); c != nil {
		if v, ok := c.Get(b.id); ok {
			env.inc(ports.MetricCacheLookups, map[string]string{"tier": "secondary"})
			return v
		}
	}
	env.inc(ports.MetricCacheLookups, map[string]string{"tier": "miss"})
	return nil
}

// SetData stores obj in the strong slot and, during interactive sessions,
// mirrors it into the secondary cache. Otherwise any older secondary entry is
// dropped so it can never resurface after FreeMemory.
func (b *base) SetData(obj any) {
	b.mu.Lock()
	b.data = obj
	b.mu.Unlock()

	env := b.environment()
	c := env.Cache()
	if c == nil {
		return
	}
	if obj != nil && env.IsInteractive() {
		c.Put(b.id, obj)
		return
	}
	c.Remove(b.id)
}

// FreeMemory drops the strong reference only. A payload still held by the
// secondary cache stays readable through RawData.
func (b *base) FreeMemory() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}

// MetaData returns the real metadata when present, else the speculative one.
func (b *base) MetaData() *metadata.MetaData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.realMD != nil {
		return b.realMD
	}
	return b.md
}

// RealMetaData returns the metadata derived from a delivered payload, if any.
func (b *base) RealMetaData() *metadata.MetaData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.realMD
}

func (b *base) speculativeMetaData() *metadata.MetaData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.md
}

func (b *base) setMetaData(md *metadata.MetaData) {
	b.mu.Lock()
	b.md = md
	b.mu.Unlock()
}

// refreshRealMetaData derives realMetaData from obj when the environment
// records metadata and clears it otherwise.
func (b *base) refreshRealMetaData(obj any) {
	var real *metadata.MetaData
	if b.environment().IsRecordingMetaData() {
		real = metadata.ForObject(obj)
	}
	b.mu.Lock()
	b.realMD = real
	b.mu.Unlock()
}

// AddError records e after applying the environment's quick-fix filter.
func (b *base) AddError(e *MetaDataError) {
	if e == nil {
		return
	}
	env := b.environment()
	e = e.filtered(env.quickFixFilter())
	b.mu.Lock()
	b.errors = append(b.errors, e)
	b.mu.Unlock()
	env.inc(ports.MetricMetaDataErrors, map[string]string{"severity": e.Severity.String()})
}

// Errors returns a snapshot of the recorded errors in insertion order.
func (b *base) Errors() []*MetaDataError {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.errors) == 0 {
		return nil
	}
	return append([]*MetaDataError(nil), b.errors...)
}

// Clear wipes the sub-states selected by flags. It is idempotent.
func (b *base) Clear(flags ClearFlag) {
	b.mu.Lock()
	if flags&ClearErrors != 0 {
		b.errors = nil
	}
	if flags&ClearMetaData != 0 {
		b.md = nil
	}
	if flags&ClearRealMetaData != 0 {
		b.realMD = nil
	}
	if flags&ClearData != 0 {
		b.data = nil
	}
	b.mu.Unlock()

	if flags&ClearData != 0 {
		if c := b.environment().Cache(); c != nil {
			c.Remove(b.id)
		}
	}
}

// Lock sets the advisory lock flag. It never blocks and is not reentrant:
// it returns false when the port is already locked.
func (b *base) Lock() bool { return b.locked.CompareAndSwap(false, true) }

// Unlock clears the advisory lock flag.
func (b *base) Unlock() { b.locked.Store(false) }

// IsLocked reports whether an operation currently holds the port.
func (b *base) IsLocked() bool { return b.locked.Load() }

func (b *base) observerList() *listenerList[Observer] {
	if b.group == nil {
		return nil
	}
	return b.group.observers()
}

func (b *base) belongs() bool {
	return b.group != nil && b.group.holds(b.id)
}
