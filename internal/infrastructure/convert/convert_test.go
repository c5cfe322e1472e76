package convert

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/metadata"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
)

type record struct {
	Name    string        `mapstructure:"name"`
	Rows    int           `mapstructure:"rows"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func TestMapDecoder(t *testing.T) {
	d := MapDecoder{}
	mapT := reflect.TypeOf(map[string]any{})

	cases := []struct {
		name string
		from reflect.Type
		to   reflect.Type
		want bool
	}{
		{name: "map to struct", from: mapT, to: reflect.TypeOf((*record)(nil)).Elem(), want: true},
		{name: "map to pointer", from: mapT, to: reflect.TypeOf((**record)(nil)).Elem(), want: true},
		{name: "struct to map", from: reflect.TypeOf((*record)(nil)).Elem(), to: mapT, want: true},
		{name: "map to int", from: mapT, to: reflect.TypeOf((*int)(nil)).Elem()},
		{name: "string to struct", from: reflect.TypeOf((*string)(nil)).Elem(), to: reflect.TypeOf((*record)(nil)).Elem()},
		{name: "nil", from: nil, to: mapT},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.CanConvert(tc.from, tc.to))
		})
	}

	got, err := d.Convert(map[string]any{"name": "users", "rows": "3", "timeout": "2s"}, reflect.TypeOf((*record)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, record{Name: "users", Rows: 3, Timeout: 2 * time.Second}, got)

	ptr, err := d.Convert(map[string]any{"name": "users"}, reflect.TypeOf((**record)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, &record{Name: "users"}, ptr)

	back, err := d.Convert(record{Name: "users", Rows: 1}, mapT)
	require.NoError(t, err)
	assert.Equal(t, "users", back.(map[string]any)["name"])

	_, err = MapDecoder{ErrorUnused: true}.Convert(map[string]any{"colour": "red"}, reflect.TypeOf((*record)(nil)).Elem())
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(MapDecoder{})
	RegisterFunc(r, func(v int) (string, error) { return strconv.Itoa(v), nil })
	RegisterFunc(r, func(v string) (int, error) { return strconv.Atoi(v) })

	assert.True(t, r.CanConvert(reflect.TypeOf((*int)(nil)).Elem(), reflect.TypeOf((*string)(nil)).Elem()))
	assert.True(t, r.CanConvert(reflect.TypeOf(map[string]any{}), reflect.TypeOf((*record)(nil)).Elem()))
	assert.False(t, r.CanConvert(reflect.TypeOf((*float64)(nil)).Elem(), reflect.TypeOf((*string)(nil)).Elem()))
	assert.False(t, r.CanConvert(nil, reflect.TypeOf((*string)(nil)).Elem()))

	v, err := r.Convert(42, reflect.TypeOf((*string)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = r.Convert("forty-two", reflect.TypeOf((*int)(nil)).Elem())
	var numErr *strconv.NumError
	assert.True(t, errors.As(err, &numErr))

	_, err = r.Convert(1.5, reflect.TypeOf((*string)(nil)).Elem())
	require.Error(t, err)
}

func TestTypedPortReadsThroughRegistry(t *testing.T) {
	env := port.NewEnvironment(port.WithConverters(NewRegistry(MapDecoder{})))
	p := stage.NewProcess("convert", env)
	src, err := p.AddStage("reader")
	require.NoError(t, err)
	dst, err := p.AddStage("writer")
	require.NoError(t, err)
	out, err := src.Outputs().CreatePort("out")
	require.NoError(t, err)
	in, err := dst.Inputs().CreatePort("in")
	require.NoError(t, err)
	in.AddPrecondition(port.RequireType[record]())
	require.NoError(t, out.ConnectTo(in))

	out.DeliverMD(metadata.Of[map[string]any]())
	in.CheckPreconditions()
	errs := in.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, port.SeverityWarning, errs[0].Severity, "convertible input only warns")

	out.Deliver(map[string]any{"name": "orders", "rows": 12})
	got, err := port.Data[record](in)
	require.NoError(t, err)
	assert.Equal(t, record{Name: "orders", Rows: 12}, got)

	_, err = port.Data[int](in)
	var userErr *port.PortUserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "int", userErr.Expected)
}
