package port

import (
	"fmt"
	"reflect"
)

// Data returns the payload at p as a T. It fails with a *PortUserError when no
// payload is present, or when the payload is not a T and no registered
// converter can bridge the two types.
func Data[T any](p Port) (T, error) {
	return typedData[T](p, false)
}

// DataOrZero behaves like Data but returns the zero T instead of failing when
// no payload is present. Type mismatches still fail.
func DataOrZero[T any](p Port) (T, error) {
	return typedData[T](p, true)
}

func typedData[T any](p Port, allowMissing bool) (T, error) {
	var zero T
	want := reflect.TypeOf((*T)(nil)).Elem()

	raw := p.RawData()
	if raw == nil {
		if allowMissing {
			return zero, nil
		}
		return zero, &PortUserError{Code: ErrCodeNoData, Port: p.Spec(), Expected: typeName(want)}
	}
	if v, ok := raw.(T); ok {
		return v, nil
	}

	actual := reflect.TypeOf(raw)
	userErr := &PortUserError{
		Code:     ErrCodeWrongType,
		Port:     p.Spec(),
		Expected: typeName(want),
		Actual:   typeName(actual),
	}

	conv := environmentOf(p.Owner()).Converters()
	if conv == nil || !conv.CanConvert(actual, want) {
		return zero, userErr
	}
	converted, err := conv.Convert(raw, want)
	if err != nil {
		userErr.Cause = err
		return zero, userErr
	}
	v, ok := converted.(T)
	if !ok {
		userErr.Cause = fmt.Errorf("converter produced %T", converted)
		return zero, userErr
	}
	return v, nil
}
