// Package metadata describes payloads before they exist. A MetaData value is
// pushed along connections ahead of execution so structural problems surface
// early, and is refreshed from real payloads when metadata recording is on.
package metadata

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// CompatibilityLevel controls how strictly a descriptor is matched against a
// required type.
type CompatibilityLevel int

const (
	// LevelStrict accepts only identical or assignable types.
	LevelStrict CompatibilityLevel = iota
	// LevelLenient additionally accepts types a registered converter can bridge.
	LevelLenient
)

func (l CompatibilityLevel) String() string {
	switch l {
	case LevelStrict:
		return "strict"
	case LevelLenient:
		return "lenient"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Convertibility reports whether values of one type can be converted to another.
type Convertibility interface {
	CanConvert(from, to reflect.Type) bool
}

// MetaData is a descriptor of a payload's runtime type plus free-form shape
// annotations. Values are treated as immutable once shared: the With* methods
// return modified copies.
type MetaData struct {
	objectType  reflect.Type
	annotations map[string]string
	generatedBy string
}

// New returns a descriptor for the given runtime type.
func New(t reflect.Type) *MetaData {
	return &MetaData{objectType: t}
}

// Of returns a descriptor for the static type T.
func Of[T any]() *MetaData {
	return New(reflect.TypeOf((*T)(nil)).Elem())
}

// Describer is implemented by payloads that can describe themselves more
// precisely than their runtime type.
type Describer interface {
	DescribeMetaData() *MetaData
}

// ForObject derives a descriptor from a concrete payload. It returns nil for a
// nil payload.
func ForObject(obj any) *MetaData {
	if obj == nil {
		return nil
	}
	if d, ok := obj.(Describer); ok {
		if md := d.DescribeMetaData(); md != nil {
			return md
		}
	}
	return New(reflect.TypeOf(obj))
}

// Type returns the described runtime type.
func (m *MetaData) Type() reflect.Type {
	if m == nil {
		return nil
	}
	return m.objectType
}

// TypeName returns a display name for the described type.
func (m *MetaData) TypeName() string {
	if m == nil || m.objectType == nil {
		return "<none>"
	}
	return m.objectType.String()
}

// GeneratedBy returns the spec of the port that produced this descriptor, if known.
func (m *MetaData) GeneratedBy() string {
	if m == nil {
		return ""
	}
	return m.generatedBy
}

// WithGeneratedBy returns a copy stamped with the producing port spec.
func (m *MetaData) WithGeneratedBy(spec string) *MetaData {
	if m == nil {
		return nil
	}
	c := m.Clone()
	c.generatedBy = spec
	return c
}

// Annotation returns a shape annotation.
func (m *MetaData) Annotation(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.annotations[key]
	return v, ok
}

// Annotations returns a copy of all shape annotations.
func (m *MetaData) Annotations() map[string]string {
	if m == nil || len(m.annotations) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.annotations))
	for k, v := range m.annotations {
		out[k] = v
	}
	return out
}

// WithAnnotation returns a copy carrying the additional annotation.
func (m *MetaData) WithAnnotation(key, value string) *MetaData {
	if m == nil {
		return nil
	}
	c := m.Clone()
	if c.annotations == nil {
		c.annotations = make(map[string]string, 1)
	}
	c.annotations[key] = value
	return c
}

// Clone returns a deep copy.
func (m *MetaData) Clone() *MetaData {
	if m == nil {
		return nil
	}
	return &MetaData{
		objectType:  m.objectType,
		annotations: m.Annotations(),
		generatedBy: m.generatedBy,
	}
}

// IsCompatible reports whether the described type satisfies required at the
// given level. A nil descriptor is never compatible; a nil requirement always is.
func (m *MetaData) IsCompatible(required reflect.Type, level CompatibilityLevel, conv Convertibility) bool {
	if m == nil || m.objectType == nil {
		return false
	}
	if required == nil {
		return true
	}
	if m.objectType == required || m.objectType.AssignableTo(required) {
		return true
	}
	if level == LevelLenient && conv != nil {
		return conv.CanConvert(m.objectType, required)
	}
	return false
}

// Equal compares type and annotations; the producing port is ignored.
func (m *MetaData) Equal(other *MetaData) bool {
	if m == nil || other == nil {
		return m == nil && other == nil
	}
	if m.objectType != other.objectType || len(m.annotations) != len(other.annotations) {
		return false
	}
	for k, v := range m.annotations {
		if ov, ok := other.annotations[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (m *MetaData) String() string {
	if m == nil {
		return "<no metadata>"
	}
	if len(m.annotations) == 0 {
		return m.TypeName()
	}
	keys := make([]string, 0, len(m.annotations))
	for k := range m.annotations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m.annotations[k])
	}
	return fmt.Sprintf("%s{%s}", m.TypeName(), strings.Join(parts, ", "))
}
