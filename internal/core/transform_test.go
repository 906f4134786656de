package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformRows_KeepsOrderAcrossChunks(t *testing.T) {
	values := make([]string, 10)
	for i := range values {
		values[i] = strconv.Itoa(i)
	}
	rows := mappedRows("n", values...)

	fn := func(ctx context.Context, row MappedRow, _ *Cache) (int, error) {
		return strconv.Atoi(row.Get("n"))
	}
	out := TransformRows(context.Background(), rows, nil, fn, 3)

	require.Len(t, out, 10)
	for i, o := range out {
		require.True(t, o.OK())
		require.Equal(t, i, o.Record)
		require.Equal(t, i+2, o.Number)
	}
}

func TestTransformRows_IsolatesFailures(t *testing.T) {
	rows := mappedRows("v", "ok", "err", "panic", "ok")

	fn := func(ctx context.Context, row MappedRow, _ *Cache) (string, error) {
		switch row.Get("v") {
		case "err":
			return "", errors.New("bad value")
		case "panic":
			var m map[string]int
			m["x"] = 1
		}
		return row.Get("v"), nil
	}
	out := TransformRows(context.Background(), rows, nil, fn, 0)

	require.True(t, out[0].OK())
	require.EqualError(t, out[1].Err, "bad value")
	require.ErrorContains(t, out[2].Err, "transform panicked")
	require.Empty(t, out[2].Record)
	require.Equal(t, 4, out[2].Number)
	require.True(t, out[3].OK())
}

func TestTransformRows_RunsChunkConcurrently(t *testing.T) {
	rows := mappedRows("v", "a", "b", "c", "d")
	var running, peak atomic.Int32
	release := make(chan struct{})

	fn := func(ctx context.Context, row MappedRow, _ *Cache) (string, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if n == 4 {
			close(release)
		}
		<-release
		running.Add(-1)
		return row.Get("v"), nil
	}
	out := TransformRows(context.Background(), rows, nil, fn, 4)
	require.Len(t, out, 4)
	require.EqualValues(t, 4, peak.Load())
}

func TestTransformRows_StopsAfterCancel(t *testing.T) {
	rows := mappedRows("v", "1", "2", "3", "4")
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	fn := func(ctx context.Context, row MappedRow, _ *Cache) (string, error) {
		calls.Add(1)
		cancel()
		return row.Get("v"), nil
	}
	out := TransformRows(ctx, rows, nil, fn, 1)

	require.EqualValues(t, 1, calls.Load())
	require.True(t, out[0].OK())
	for _, o := range out[1:] {
		require.ErrorIs(t, o.Err, context.Canceled)
		require.ErrorContains(t, o.Err, "not processed")
	}
}

func TestTransformRows_CancelledWithinChunk(t *testing.T) {
	rows := mappedRows("v", "1", "2", "3", "4", "5", "6")
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	fn := func(ctx context.Context, row MappedRow, _ *Cache) (string, error) {
		calls.Add(1)
		cancel()
		return row.Get("v"), nil
	}
	out := TransformRows(ctx, rows, nil, fn, 3)

	var done, skipped int
	for _, o := range out[:3] {
		if o.OK() {
			done++
			continue
		}
		require.ErrorIs(t, o.Err, context.Canceled)
		skipped++
	}
	require.EqualValues(t, calls.Load(), done)
	require.Equal(t, 3, done+skipped)
	for _, o := range out[3:] {
		require.ErrorContains(t, o.Err, "not processed")
	}
}

func ExampleTransformRows() {
	rows := []MappedRow{
		NewMappedRow(2, map[string]string{"amount": "₹1,200"}),
		NewMappedRow(3, map[string]string{"amount": "(50)"}),
	}
	out := TransformRows(context.Background(), rows, nil, func(ctx context.Context, row MappedRow, _ *Cache) (string, error) {
		return ParseAmount(row.Get("amount")).String(), nil
	}, 0)
	for _, o := range out {
		fmt.Println(o.Number, o.Record)
	}
	// Output:
	// 2 1200
	// 3 -50
}
