package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSyntheticKey(t *testing.T) {
	a := SyntheticKey("C1", "INE001A01036", "2026-04-01", "B")
	b := SyntheticKey(" c1 ", "ine001a01036", "2026-04-01", "b")
	require.Equal(t, a, b)

	_, err := uuid.Parse(a)
	require.NoError(t, err)

	require.NotEqual(t, a, SyntheticKey("C1", "INE001A01036", "2026-04-02", "B"))
	require.NotEqual(t, SyntheticKey("AB", "C"), SyntheticKey("A", "BC"))
}

func TestCompositeKey(t *testing.T) {
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	name := " asha "
	var nilName *string

	tests := []struct {
		name   string
		values map[string]any
		keys   []string
		want   string
		ok     bool
	}{
		{"single string", map[string]any{"client_id": " c1 "}, []string{"client_id"}, "C1", true},
		{"string and date", map[string]any{"client_id": "C1", "as_of": day}, []string{"client_id", "as_of"}, "C1|2026-04-01", true},
		{"date pointer", map[string]any{"as_of": &day}, []string{"as_of"}, "2026-04-01", true},
		{"string pointer", map[string]any{"name": &name}, []string{"name"}, "ASHA", true},
		{"decimal", map[string]any{"amt": decimal.RequireFromString("10.50")}, []string{"amt"}, "10.5", true},
		{"integer", map[string]any{"n": int64(42)}, []string{"n"}, "42", true},
		{"missing column", map[string]any{"client_id": "C1"}, []string{"client_id", "as_of"}, "", false},
		{"nil value", map[string]any{"client_id": nil}, []string{"client_id"}, "", false},
		{"nil pointer", map[string]any{"name": nilName}, []string{"name"}, "", false},
		{"blank string", map[string]any{"client_id": "  "}, []string{"client_id"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CompositeKey(tt.values, tt.keys)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
