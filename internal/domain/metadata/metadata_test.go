package metadata

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type table struct{ rows int }

func (t *table) DescribeMetaData() *MetaData {
	return Of[*table]().WithAnnotation("rows", "3")
}

type stringer interface{ String() string }

type named string

func (n named) String() string { return string(n) }

type fakeConv struct{ from, to reflect.Type }

func (c fakeConv) CanConvert(from, to reflect.Type) bool {
	return from == c.from && to == c.to
}

func TestForObject(t *testing.T) {
	assert.Nil(t, ForObject(nil))

	md := ForObject(42)
	require.NotNil(t, md)
	assert.Equal(t, reflect.TypeOf((*int)(nil)).Elem(), md.Type())

	described := ForObject(&table{rows: 3})
	rows, ok := described.Annotation("rows")
	require.True(t, ok)
	assert.Equal(t, "3", rows)
}

func TestIsCompatible(t *testing.T) {
	cases := []struct {
		name     string
		md       *MetaData
		required reflect.Type
		level    CompatibilityLevel
		conv     Convertibility
		want     bool
	}{
		{name: "nil metadata", md: nil, required: reflect.TypeOf((*int)(nil)).Elem(), want: false},
		{name: "nil requirement", md: Of[int](), required: nil, want: true},
		{name: "identical", md: Of[int](), required: reflect.TypeOf((*int)(nil)).Elem(), want: true},
		{name: "assignable to interface", md: Of[named](), required: reflect.TypeOf((*stringer)(nil)).Elem(), want: true},
		{name: "mismatch strict", md: Of[string](), required: reflect.TypeOf((*int)(nil)).Elem(), want: false},
		{
			name:     "converter ignored when strict",
			md:       Of[string](),
			required: reflect.TypeOf((*int)(nil)).Elem(),
			level:    LevelStrict,
			conv:     fakeConv{from: reflect.TypeOf((*string)(nil)).Elem(), to: reflect.TypeOf((*int)(nil)).Elem()},
			want:     false,
		},
		{
			name:     "converter used when lenient",
			md:       Of[string](),
			required: reflect.TypeOf((*int)(nil)).Elem(),
			level:    LevelLenient,
			conv:     fakeConv{from: reflect.TypeOf((*string)(nil)).Elem(), to: reflect.TypeOf((*int)(nil)).Elem()},
			want:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.md.IsCompatible(tc.required, tc.level, tc.conv))
		})
	}
}

func TestWithMethodsCopy(t *testing.T) {
	base := Of[int]()
	annotated := base.WithAnnotation("unit", "ms").WithGeneratedBy("a.out")

	_, ok := base.Annotation("unit")
	assert.False(t, ok, "original must stay untouched")
	assert.Equal(t, "", base.GeneratedBy())
	assert.Equal(t, "a.out", annotated.GeneratedBy())
	assert.Equal(t, "int{unit=ms}", annotated.String())
	assert.True(t, annotated.Equal(Of[int]().WithAnnotation("unit", "ms")))
	assert.False(t, annotated.Equal(base))
}
