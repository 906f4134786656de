package core

import (
	"context"
	"fmt"
	"log/slog"
)

// Executor persists records in chunks through a Persister.
type Executor struct {
	persister Persister
	chunkSize int
	logger    *slog.Logger
}

// NewExecutor creates an executor writing chunkSize records per BulkUpsert call.
func NewExecutor(p Persister, chunkSize int, logger *slog.Logger) *Executor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{persister: p, chunkSize: chunkSize, logger: logger}
}

// Upsert writes records chunk by chunk. A chunk the persister rejects as a
// whole turns every record in it into a row error and the run continues.
// Only context cancellation stops the remaining chunks.
func (e *Executor) Upsert(ctx context.Context, table string, uniqueKeys []string, records []Record) (UpsertSummary, error) {
	var total UpsertSummary

	done := 0
	for _, part := range chunk(records, e.chunkSize) {
		if err := ctx.Err(); err != nil {
			for _, r := range records[done:] {
				total.Errors = append(total.Errors, RowError{Row: r.Row, Message: fmt.Sprintf("not persisted: %v", err)})
			}
			return total, nil
		}

		sum, err := e.persister.BulkUpsert(ctx, table, uniqueKeys, part)
		done += len(part)
		if err != nil {
			e.logger.Warn("bulk upsert failed",
				"table", table,
				"records", len(part),
				"error", err,
			)
			for _, r := range part {
				total.Errors = append(total.Errors, RowError{Row: r.Row, Message: fmt.Sprintf("persist: %v", err)})
			}
			continue
		}

		total.Created += sum.Created
		total.Updated += sum.Updated
		total.Entities = append(total.Entities, sum.Entities...)
		total.Errors = append(total.Errors, sum.Errors...)
	}
	return total, nil
}
