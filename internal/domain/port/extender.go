package port

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// Extender grows a group on demand for stages with a variable number of
// ports.
type Extender interface {
	// Prefix is the name prefix of the ports the extender manages; the k-th
	// port is named Prefix()+k, starting at 1.
	Prefix() string
	// EnsureAtLeast makes sure ports 1..n exist. It either creates all
	// missing ports or none.
	EnsureAtLeast(n int) error
}

// ParseIndexedName extracts k from prefix+k. Only canonical positive decimal
// indices are accepted.
func ParseIndexedName(prefix, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || strconv.Itoa(n) != rest {
		return 0, false
	}
	return n, true
}

// DefaultMaxPorts bounds how far an extender grows a group unless MaxPorts
// says otherwise.
const DefaultMaxPorts = 1024

// ExtenderOption tunes a SequenceExtender.
type ExtenderOption func(*extenderConfig)

type extenderConfig struct {
	min            int
	max            int
	keepFree       bool
	simulatesStack bool
}

// MinPorts keeps at least n managed ports in the group.
func MinPorts(n int) ExtenderOption {
	return func(c *extenderConfig) {
		if n > 0 {
			c.min = n
		}
	}
}

// MaxPorts refuses to grow the group beyond n managed ports.
func MaxPorts(n int) ExtenderOption {
	return func(c *extenderConfig) {
		if n > 0 {
			c.max = n
		}
	}
}

// KeepOneFree makes the extender follow connections: it grows when the last
// managed port gets connected and trims surplus free trailing ports on
// disconnect, so exactly one free port stays at the end.
func KeepOneFree() ExtenderOption {
	return func(c *extenderConfig) { c.keepFree = true }
}

// ExtendSimulatingStack creates ports that take part in stack-style exchange.
func ExtendSimulatingStack() ExtenderOption {
	return func(c *extenderConfig) { c.simulatesStack = true }
}

// follower is the view one half of a pair has of the other half.
type follower interface {
	ensureLocal(n int) error
	highestConnected() int
	shrink(n int)
}

// SequenceExtender manages the ports prefix1, prefix2, ... of one group.
type SequenceExtender[P kind] struct {
	group  *Group[P]
	prefix string
	cfg    extenderConfig

	mu        *sync.Mutex
	configure func(P)
	last      P
	followers []follower
}

// NewSequenceExtender registers a new extender on g and creates the initial
// ports.
func NewSequenceExtender[P kind](g *Group[P], prefix string, opts ...ExtenderOption) (*SequenceExtender[P], error) {
	e := newSequenceExtender(g, prefix, opts...)
	if err := e.attach(); err != nil {
		return nil, err
	}
	return e, nil
}

func newSequenceExtender[P kind](g *Group[P], prefix string, opts ...ExtenderOption) *SequenceExtender[P] {
	e := &SequenceExtender[P]{group: g, prefix: prefix, mu: &sync.Mutex{}}
	e.cfg.max = DefaultMaxPorts
	for _, opt := range opts {
		opt(&e.cfg)
	}
	return e
}

func (e *SequenceExtender[P]) attach() error {
	e.group.RegisterExtender(e)
	e.group.AddObserver(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensure(e.target())
}

// Prefix implements Extender.
func (e *SequenceExtender[P]) Prefix() string { return e.prefix }

// EnsureAtLeast implements Extender.
func (e *SequenceExtender[P]) EnsureAtLeast(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensure(n)
}

// Configure installs fn, which is applied to every port the extender creates
// from now on, e.g. to attach preconditions.
func (e *SequenceExtender[P]) Configure(fn func(P)) {
	e.mu.Lock()
	e.configure = fn
	e.mu.Unlock()
}

// KeepLast keeps p behind the managed ports whenever the group grows.
func (e *SequenceExtender[P]) KeepLast(p P) error {
	if err := e.group.PushDown(p); err != nil {
		return err
	}
	e.mu.Lock()
	e.last = p
	e.mu.Unlock()
	return nil
}

// ManagedPorts returns the managed ports ordered by index.
func (e *SequenceExtender[P]) ManagedPorts() []P {
	var out []P
	for k := 1; ; k++ {
		p, ok := e.group.lookup(e.name(k))
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

func (e *SequenceExtender[P]) name(k int) string { return e.prefix + strconv.Itoa(k) }

// ensure grows this group and every linked group to n managed ports.
func (e *SequenceExtender[P]) ensure(n int) error {
	if n > e.cfg.max {
		return newConnectionError(ErrCodeExtension, nil, "cannot extend %s ports to %d: the limit is %d", e.prefix, n, e.cfg.max)
	}
	if err := e.ensureLocal(n); err != nil {
		return err
	}
	for _, f := range e.followers {
		if err := f.ensureLocal(n); err != nil {
			return err
		}
	}
	return nil
}

func (e *SequenceExtender[P]) ensureLocal(n int) error {
	var missing []string
	for k := 1; k <= n; k++ {
		if _, ok := e.group.lookup(e.name(k)); !ok {
			missing = append(missing, e.name(k))
		}
	}
	if len(missing) == 0 {
		return nil
	}

	created, err := e.group.createBatch(missing, e.cfg.simulatesStack)
	if err != nil {
		ce := newConnectionError(ErrCodeExtension, nil, "cannot extend %s ports to %d", e.prefix, n)
		ce.Cause = err
		return ce
	}
	if e.configure != nil {
		for _, p := range created {
			e.configure(p)
		}
	}
	var zero P
	if e.last != zero && e.group.ContainsPort(e.last) {
		if err := e.group.PushDown(e.last); err != nil {
			return err
		}
	}
	return nil
}

// highestConnected returns the highest index among connected managed ports,
// or 0.
func (e *SequenceExtender[P]) highestConnected() int {
	highest := 0
	for _, p := range e.group.AllPorts() {
		if !p.IsConnected() {
			continue
		}
		if k, ok := ParseIndexedName(e.prefix, p.Name()); ok && k > highest {
			highest = k
		}
	}
	return highest
}

// shrink removes managed ports above n from the top down. It stops at the
// first port that is connected or locked.
func (e *SequenceExtender[P]) shrink(n int) {
	managed := e.ManagedPorts()
	for k := len(managed); k > n; k-- {
		p := managed[k-1]
		if p.IsConnected() || p.IsLocked() {
			return
		}
		if err := e.group.RemovePort(p); err != nil {
			e.group.environment().Logger().Warn(context.Background(), "cannot trim extensible port",
				"port", p.Spec(), "error", err)
			return
		}
	}
}

func (e *SequenceExtender[P]) target() int {
	want := e.cfg.min
	if e.cfg.keepFree {
		highest := e.highestConnected()
		for _, f := range e.followers {
			highest = max(highest, f.highestConnected())
		}
		want = max(want, highest+1)
	}
	return want
}

// PortsChanged implements Observer. It only reacts to connection changes and
// only when KeepOneFree is set.
func (e *SequenceExtender[P]) PortsChanged(ev ChangeEvent) {
	if !e.cfg.keepFree {
		return
	}
	if ev.Kind != ChangeConnected && ev.Kind != ChangeDisconnected {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	want := e.target()
	if ev.Kind == ChangeConnected {
		if err := e.ensure(want); err != nil {
			e.group.environment().Logger().Warn(context.Background(), "cannot keep a free port",
				"prefix", e.prefix, "error", err)
		}
		return
	}
	e.shrink(want)
	for _, f := range e.followers {
		f.shrink(want)
	}
}

// PairExtender grows an input group and an output group in lock-step, so
// in_k always has a matching out_k.
type PairExtender struct {
	in  *SequenceExtender[*InputPort]
	out *SequenceExtender[*OutputPort]
}

// NewPairExtender registers linked extenders on in and out.
func NewPairExtender(in *InputPorts, inPrefix string, out *OutputPorts, outPrefix string, opts ...ExtenderOption) (*PairExtender, error) {
	ie := newSequenceExtender(in, inPrefix, opts...)
	oe := newSequenceExtender(out, outPrefix, opts...)
	oe.mu = ie.mu
	ie.followers = []follower{oe}
	oe.followers = []follower{ie}

	out.RegisterExtender(oe)
	out.AddObserver(oe)
	if err := ie.attach(); err != nil {
		return nil, err
	}
	return &PairExtender{in: ie, out: oe}, nil
}

// Inputs returns the input half.
func (p *PairExtender) Inputs() *SequenceExtender[*InputPort] { return p.in }

// Outputs returns the output half.
func (p *PairExtender) Outputs() *SequenceExtender[*OutputPort] { return p.out }

// Pairs returns the matching input/output ports by index.
func (p *PairExtender) Pairs() [][2]Port {
	ins, outs := p.in.ManagedPorts(), p.out.ManagedPorts()
	n := min(len(ins), len(outs))
	pairs := make([][2]Port, n)
	for i := 0; i < n; i++ {
		pairs[i] = [2]Port{ins[i], outs[i]}
	}
	return pairs
}
