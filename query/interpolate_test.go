package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	born := time.Date(1990, 7, 14, 0, 0, 0, 0, time.UTC)
	seen := time.Date(2024, 3, 1, 8, 15, 0, 0, time.FixedZone("", 2*3600))

	tests := []struct {
		name     string
		template string
		args     []any
		want     string
	}{
		{"scenario", "age > ? and city = ?", []any{21, "Paris"}, "age > 21 and city = 'Paris'"},
		{"no args", "age > ?", nil, "age > ?"},
		{"date", "born = ?", []any{born}, "born = '1990-07-14'"},
		{"datetime", "seen = ?", []any{seen}, "seen = '2024-03-01 08:15:00 +0200'"},
		{"nil", "email is ?", []any{nil}, "email is null"},
		{"float and bool", "a = ? and b = ?", []any{1.5, true}, "a = 1.5 and b = true"},
		{"missing args keep placeholders", "a = ? and b = ?", []any{1}, "a = 1 and b = ?"},
		{"surplus args ignored", "a = ?", []any{1, 2}, "a = 1"},
		{"substitutions are not rescanned", "a = ? and b = ?", []any{"?", 2}, "a = '?' and b = 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.template, tt.args...))
		})
	}
}
