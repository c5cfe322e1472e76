package ports

import "reflect"

// Converter bridges payloads between runtime types when a port's stored value
// does not match the type requested by the reader.
type Converter interface {
	CanConvert(from, to reflect.Type) bool
	Convert(value any, to reflect.Type) (any, error)
}
