package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		id := fmt.Sprintf("W%d", i+1)
		out[i] = Record{Row: i + 2, Key: id, Values: map[string]any{"widget_id": id}}
	}
	return out
}

func TestExecutor_Chunks(t *testing.T) {
	p := newFakePersister()
	ex := NewExecutor(p, 2, nil)

	sum, err := ex.Upsert(context.Background(), "widgets", []string{"widget_id"}, records(5))
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 1}, p.batches)
	require.Equal(t, 5, sum.Created)
	require.Len(t, sum.Entities, 5)
	require.Empty(t, sum.Errors)

	sum, err = ex.Upsert(context.Background(), "widgets", []string{"widget_id"}, records(3))
	require.NoError(t, err)
	require.Equal(t, 0, sum.Created)
	require.Equal(t, 3, sum.Updated)
	require.Equal(t, 5, p.count("widgets"))
}

func TestExecutor_FailedChunkBecomesRowErrors(t *testing.T) {
	p := newFakePersister()
	p.failCalls[2] = errors.New("deadlock detected")
	ex := NewExecutor(p, 2, nil)

	sum, err := ex.Upsert(context.Background(), "widgets", []string{"widget_id"}, records(5))
	require.NoError(t, err)
	require.Equal(t, 3, sum.Created)
	require.Len(t, sum.Errors, 2)
	require.Equal(t, RowError{Row: 4, Message: "persist: deadlock detected"}, sum.Errors[0])
	require.Equal(t, 5, sum.Errors[1].Row)
	require.Equal(t, 3, p.count("widgets"))
}

func TestExecutor_CancelledRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newFakePersister()
	sum, err := NewExecutor(p, 2, nil).Upsert(ctx, "widgets", []string{"widget_id"}, records(3))
	require.NoError(t, err)
	require.Len(t, sum.Errors, 3)
	require.Contains(t, sum.Errors[0].Message, "not persisted")
	require.Zero(t, p.calls)
}

func TestExecutor_NoRecords(t *testing.T) {
	p := newFakePersister()
	sum, err := NewExecutor(p, 0, nil).Upsert(context.Background(), "widgets", []string{"widget_id"}, nil)
	require.NoError(t, err)
	require.Zero(t, sum.Created)
	require.Zero(t, p.calls)
}
