package convert

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

var mapType = reflect.TypeOf(map[string]any(nil))

// MapDecoder converts loosely typed records (map[string]any) into structs or
// struct pointers, and structs back into records. Field names follow
// `mapstructure` tags; scalar values are weakly typed, so "3" decodes into an
// int field.
type MapDecoder struct {
	// ErrorUnused rejects records with keys that match no field.
	ErrorUnused bool
}

// CanConvert implements ports.Converter.
func (d MapDecoder) CanConvert(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	switch {
	case from == mapType:
		return isStruct(to)
	case to == mapType:
		return isStruct(from)
	}
	return false
}

// Convert implements ports.Converter.
func (d MapDecoder) Convert(value any, to reflect.Type) (any, error) {
	if to == mapType {
		out := map[string]any{}
		if err := mapstructure.Decode(value, &out); err != nil {
			return nil, fmt.Errorf("encode %T: %w", value, err)
		}
		return out, nil
	}

	elem := to
	if to.Kind() == reflect.Pointer {
		elem = to.Elem()
	}
	target := reflect.New(elem)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target.Interface(),
		WeaklyTypedInput: true,
		ErrorUnused:      d.ErrorUnused,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(value); err != nil {
		return nil, fmt.Errorf("decode into %s: %w", to, err)
	}
	if to.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

func isStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

var _ ports.Converter = MapDecoder{}
