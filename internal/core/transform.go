package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of rows transformed concurrently before the
// next chunk starts, and the number of records per persistence batch.
const DefaultChunkSize = 1000

// TransformRows applies fn to every row. Rows within a chunk run concurrently;
// each chunk completes before the next begins. A failing or panicking row is
// captured in its Outcome and never aborts the batch. Once ctx is done, rows
// not yet started fail with "not processed". Outcomes keep input order.
func TransformRows[R any](ctx context.Context, rows []MappedRow, cache *Cache, fn TransformFunc[R], chunkSize int) []Outcome[R] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	out := make([]Outcome[R], len(rows))
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))

		// Row goroutines return only the cancellation error, so Wait
		// reports whether the run was stopped during this chunk.
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if gctx.Err() != nil {
					out[i] = notProcessed[R](ctx, rows[i])
					return ctx.Err()
				}
				out[i] = transformOne(ctx, rows[i], cache, fn)
				return nil
			})
		}
		if err := g.Wait(); err != nil || ctx.Err() != nil {
			for i := end; i < len(rows); i++ {
				out[i] = notProcessed[R](ctx, rows[i])
			}
			return out
		}
	}
	return out
}

func notProcessed[R any](ctx context.Context, row MappedRow) Outcome[R] {
	return Outcome[R]{Number: row.Number, Err: fmt.Errorf("not processed: %w", ctx.Err())}
}

func transformOne[R any](ctx context.Context, row MappedRow, cache *Cache, fn TransformFunc[R]) (o Outcome[R]) {
	o.Number = row.Number
	defer func() {
		if r := recover(); r != nil {
			var zero R
			o.Record = zero
			o.Err = fmt.Errorf("transform panicked: %v", r)
		}
	}()

	rec, err := fn(ctx, row, cache)
	if err != nil {
		o.Err = err
		return o
	}
	o.Record = rec
	return o
}
