package port

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
)

// InputPort receives payloads and metadata from at most one OutputPort.
type InputPort struct {
	base
	source *OutputPort

	pcMu          sync.RWMutex
	preconditions []Precondition

	listeners listenerList[MetaDataChangeListener]
}

// Source returns the connected output port or nil.
func (p *InputPort) Source() *OutputPort {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

func (p *InputPort) setSource(o *OutputPort) {
	p.mu.Lock()
	p.source = o
	p.mu.Unlock()
}

// IsConnected reports whether a source is attached.
func (p *InputPort) IsConnected() bool { return p.Source() != nil }

// Opposite returns the source port or nil.
func (p *InputPort) Opposite() Port {
	if src := p.Source(); src != nil {
		return src
	}
	return nil
}

// Disconnect tears down the connection from the input side.
func (p *InputPort) Disconnect() error {
	src := p.Source()
	if src == nil {
		return newConnectionError(ErrCodeNotConnected, p, "port is not connected")
	}
	if p.IsLocked() {
		return lockedError(p)
	}
	if src.IsLocked() {
		return lockedError(src)
	}
	return src.disconnect()
}

// Receive stores a payload. When the environment records metadata, the real
// metadata is recomputed from obj; otherwise it is cleared.
func (p *InputPort) Receive(obj any) {
	p.SetData(obj)
	p.refreshRealMetaData(obj)
}

// ReceiveMD stores speculative metadata and notifies metadata listeners.
func (p *InputPort) ReceiveMD(md *metadata.MetaData) {
	p.setMetaData(md)
	for _, l := range p.listeners.snapshot() {
		l.MetaDataChanged(p, md)
	}
	p.environment().publish(metaDataEvent{port: p, md: md})
}

// RegisterMetaDataChangeListener adds l; registering twice has no effect.
func (p *InputPort) RegisterMetaDataChangeListener(l MetaDataChangeListener) {
	if l != nil {
		p.listeners.add(l)
	}
}

// RemoveMetaDataChangeListener removes l. It is safe during dispatch.
func (p *InputPort) RemoveMetaDataChangeListener(l MetaDataChangeListener) {
	if l != nil {
		p.listeners.remove(l)
	}
}

// AddPrecondition attaches pc to the port.
func (p *InputPort) AddPrecondition(pc Precondition) {
	if pc == nil {
		return
	}
	p.pcMu.Lock()
	next := make([]Precondition, 0, len(p.preconditions)+1)
	next = append(next, p.preconditions...)
	p.preconditions = append(next, pc)
	p.pcMu.Unlock()
}

// Preconditions returns a snapshot of the attached preconditions.
func (p *InputPort) Preconditions() []Precondition {
	p.pcMu.RLock()
	defer p.pcMu.RUnlock()
	return p.preconditions
}

// CheckPreconditions runs every precondition against the effective metadata.
// A precondition that fails itself is recorded as a single warning and does
// not prevent the remaining ones from running. Errors are appended to the
// ones already recorded; use Recheck for a fresh result.
func (p *InputPort) CheckPreconditions() {
	md := p.MetaData()
	for _, pc := range p.Preconditions() {
		p.runPrecondition(pc, md)
	}
}

// Recheck clears the recorded errors and runs CheckPreconditions again.
func (p *InputPort) Recheck() {
	p.Clear(ClearErrors)
	p.CheckPreconditions()
}

func (p *InputPort) runPrecondition(pc Precondition, md *metadata.MetaData) {
	defer func() {
		if r := recover(); r != nil {
			p.preconditionFailed(pc, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := pc.Check(p, md); err != nil {
		p.preconditionFailed(pc, err)
	}
}

func (p *InputPort) preconditionFailed(pc Precondition, cause error) {
	p.logger().Warn(context.Background(), "precondition check failed",
		"precondition", pc.Description(), "error", cause)
	p.AddError(NewMetaDataError(p, SeverityWarning, CodePreconditionFailed,
		"could not check %q: %v", pc.Description(), cause))
}

// IsInputCompatible reports whether every precondition accepts md at level.
// It is used to pre-validate a candidate connection.
func (p *InputPort) IsInputCompatible(md *metadata.MetaData, level metadata.CompatibilityLevel) bool {
	conv := p.environment().Converters()
	for _, pc := range p.Preconditions() {
		if !p.compatible(pc, md, level, conv) {
			return false
		}
	}
	return true
}

func (p *InputPort) compatible(pc Precondition, md *metadata.MetaData, level metadata.CompatibilityLevel, conv metadata.Convertibility) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger().Warn(context.Background(), "compatibility check failed",
				"precondition", pc.Description(), "error", r)
			ok = false
		}
	}()
	return pc.IsCompatible(md, level, conv)
}

// Description lists the requirements of the attached preconditions.
func (p *InputPort) Description() string {
	pcs := p.Preconditions()
	if len(pcs) == 0 {
		return "accepts any input"
	}
	parts := make([]string, 0, len(pcs))
	for _, pc := range pcs {
		parts = append(parts, pc.Description())
	}
	return strings.Join(parts, "; ")
}
