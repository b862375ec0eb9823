package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		kind Kind
		in   any
		want any
	}{
		{"nil passes", KindInt, nil, nil},
		{"int from string", KindInt, "42", int64(42)},
		{"int from integral float", KindInt, 3.0, int64(3)},
		{"float from int", KindFloat, 3, float64(3)},
		{"float from string", KindFloat, "2.5", 2.5},
		{"string from int", KindString, 21, "21"},
		{"string from bytes", KindString, []byte("abc"), "abc"},
		{"bool from int", KindBool, int64(1), true},
		{"bool from string", KindBool, "false", false},
		{"date from string", KindTime, "2024-03-01", date},
		{"time to utc", KindTime, date.In(time.FixedZone("", 3600)), date},
		{"any untouched", KindAny, []int{1}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.kind, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceRejects(t *testing.T) {
	for _, tt := range []struct {
		kind Kind
		in   any
	}{
		{KindInt, "abc"},
		{KindInt, 2.5},
		{KindFloat, true},
		{KindBool, "maybe"},
		{KindTime, "yesterday"},
	} {
		_, err := Coerce(tt.kind, tt.in)
		assert.Error(t, err, "%s %v", tt.kind, tt.in)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Integer")
	require.NoError(t, err)
	assert.Equal(t, KindInt, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAny, k)

	_, err = ParseKind("blob")
	assert.Error(t, err)

	var kind Kind
	require.NoError(t, kind.UnmarshalText([]byte("date")))
	assert.Equal(t, KindTime, kind)
}
