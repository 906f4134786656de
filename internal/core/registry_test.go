package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	def, err := Get(widgetKey)
	require.NoError(t, err)
	require.Equal(t, "Widget", def.Info().Label)
	require.Equal(t, widgetKey, def.Info().Table)
	require.Equal(t, []string{"ID"}, def.RequiredHeaders())
	require.Equal(t, []string{"widget_id"}, def.UniqueKeys())

	_, err = Get("nope")
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "nope", unknown.Key)

	require.Contains(t, Groups(), "Test")
	require.Len(t, ByGroup("Test"), 2)
	require.GreaterOrEqual(t, TypeCount(), 2)

	slow, err := Get(slowWidgetKey)
	require.NoError(t, err)
	require.Equal(t, "Slow Widget", slow.Info().EntityName)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	def, err := Get(widgetKey)
	require.NoError(t, err)
	require.Panics(t, func() { Register(def) })
}

func TestDefine_RejectsIncompleteSpecs(t *testing.T) {
	transform := func(context.Context, MappedRow, *Cache) (widget, error) { return widget{}, nil }

	tests := []struct {
		name string
		spec Spec[widget]
	}{
		{"no key", Spec[widget]{Transform: transform, Record: widgetRecord, UniqueKeys: []string{"id"}}},
		{"no transform", Spec[widget]{Info: TypeInfo{Key: "x"}, Record: widgetRecord, UniqueKeys: []string{"id"}}},
		{"no unique keys", Spec[widget]{Info: TypeInfo{Key: "x"}, Transform: transform, Record: widgetRecord}},
		{"undeclared batch field", Spec[widget]{
			Info:       TypeInfo{Key: "x"},
			Columns:    []Column{{Source: "ID", Field: "id"}},
			UniqueKeys: []string{"id"},
			Batchable:  []BatchField{{Field: "owner", Domain: "owner"}},
			Transform:  transform,
			Record:     widgetRecord,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Panics(t, func() { Define(tt.spec) })
		})
	}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(2)
	for _, id := range []string{"r1", "r2", "r3"} {
		h.Add(&BulkResult{RunID: id})
	}

	_, ok := h.Get("r1")
	require.False(t, ok)
	got, ok := h.Get("r3")
	require.True(t, ok)
	require.Equal(t, "r3", got.RunID)

	recent := h.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "r3", recent[0].RunID)
	require.Equal(t, "r2", recent[1].RunID)
}
