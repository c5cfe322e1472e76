// Package convert bridges payload types for typed port reads and lenient
// compatibility checks.
package convert

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

type pair struct{ from, to reflect.Type }

// Registry is a ports.Converter composed of exact-type conversion functions
// and fallback converters consulted in registration order.
type Registry struct {
	mu        sync.RWMutex
	funcs     map[pair]func(any) (any, error)
	fallbacks []ports.Converter
}

// NewRegistry returns a registry seeded with the given fallback converters.
func NewRegistry(fallbacks ...ports.Converter) *Registry {
	r := &Registry{funcs: make(map[pair]func(any) (any, error))}
	for _, c := range fallbacks {
		r.Register(c)
	}
	return r
}

// Register appends a fallback converter.
func (r *Registry) Register(c ports.Converter) {
	if c == nil {
		return
	}
	r.mu.Lock()
	r.fallbacks = append(r.fallbacks, c)
	r.mu.Unlock()
}

// RegisterFunc installs fn as the conversion from From to To, replacing any
// previous one for the same pair.
func RegisterFunc[From, To any](r *Registry, fn func(From) (To, error)) {
	key := pair{from: reflect.TypeOf((*From)(nil)).Elem(), to: reflect.TypeOf((*To)(nil)).Elem()}
	r.mu.Lock()
	r.funcs[key] = func(v any) (any, error) {
		from, ok := v.(From)
		if !ok {
			return nil, fmt.Errorf("convert: expected %s, got %T", key.from, v)
		}
		return fn(from)
	}
	r.mu.Unlock()
}

// CanConvert implements ports.Converter.
func (r *Registry) CanConvert(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.funcs[pair{from: from, to: to}]; ok {
		return true
	}
	for _, c := range r.fallbacks {
		if c.CanConvert(from, to) {
			return true
		}
	}
	return false
}

// Convert implements ports.Converter.
func (r *Registry) Convert(value any, to reflect.Type) (any, error) {
	from := reflect.TypeOf(value)
	r.mu.RLock()
	fn, ok := r.funcs[pair{from: from, to: to}]
	fallbacks := r.fallbacks
	r.mu.RUnlock()

	if ok {
		return fn(value)
	}
	for _, c := range fallbacks {
		if c.CanConvert(from, to) {
			return c.Convert(value, to)
		}
	}
	return nil, fmt.Errorf("convert: no conversion from %v to %v", from, to)
}

var _ ports.Converter = (*Registry)(nil)
