package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/JonMunkholm/reportload/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx used for queries, satisfied by the pool and by
// transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres reads reference data from and upserts records into PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// FindByIDs resolves ids within a reference domain. Missing ids are simply
// absent from the result.
func (p *Postgres) FindByIDs(ctx context.Context, domain string, ids []string) ([]core.Ref, error) {
	return findByIDs(ctx, p.pool, domain, ids)
}

func findByIDs(ctx context.Context, db DBTX, domain string, ids []string) ([]core.Ref, error) {
	q, ok := domainQueries[domain]
	if !ok {
		return nil, &UnknownDomainError{Domain: domain}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.Query(ctx, q.sql, ids)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", domain, err)
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Ref, error) {
		cols := make([]pgtype.Text, 1+len(q.attrs))
		dest := make([]any, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := row.Scan(dest...); err != nil {
			return core.Ref{}, err
		}

		ref := core.Ref{ID: cols[0].String, Attrs: make(map[string]string, len(q.attrs))}
		for i, name := range q.attrs {
			if cols[i+1].Valid {
				ref.Attrs[name] = cols[i+1].String
			}
		}
		return ref, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", domain, err)
	}
	return refs, nil
}

// BulkUpsert writes one chunk of records in a single transaction. Each record
// runs under its own savepoint so that a failing row is rolled back alone and
// reported, while the rest of the chunk commits.
func (p *Postgres) BulkUpsert(ctx context.Context, table string, uniqueKeys []string, records []core.Record) (core.UpsertSummary, error) {
	if len(records) == 0 {
		return core.UpsertSummary{}, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return core.UpsertSummary{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	summary, err := upsertRecords(ctx, tx, table, uniqueKeys, records)
	if err != nil {
		return core.UpsertSummary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return core.UpsertSummary{}, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Debug("chunk upserted",
		"table", table,
		"created", summary.Created,
		"updated", summary.Updated,
		"failed", len(summary.Errors),
	)
	return summary, nil
}

// upsertRecords runs the savepoint loop inside an open transaction. A
// statement error fails its row; a savepoint error fails the chunk.
func upsertRecords(ctx context.Context, tx DBTX, table string, uniqueKeys []string, records []core.Record) (core.UpsertSummary, error) {
	var summary core.UpsertSummary
	cols := columnsOf(records)
	query := upsertSQL(table, cols, uniqueKeys)

	for i, rec := range records {
		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return core.UpsertSummary{}, fmt.Errorf("create savepoint: %w", err)
		}

		args := make([]any, len(cols))
		for j, c := range cols {
			args[j] = rec.Values[c]
		}

		var inserted bool
		if err := tx.QueryRow(ctx, query, args...).Scan(&inserted); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return core.UpsertSummary{}, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			summary.Errors = append(summary.Errors, core.RowError{Row: rec.Row, Message: describeError(err)})
			continue
		}
		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return core.UpsertSummary{}, fmt.Errorf("release savepoint: %w", err)
		}

		if inserted {
			summary.Created++
		} else {
			summary.Updated++
		}
		summary.Entities = append(summary.Entities, core.Entity{Row: rec.Row, Key: rec.Key, Created: inserted})
	}
	return summary, nil
}

// columnsOf returns the sorted union of value keys across records.
func columnsOf(records []core.Record) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for k := range r.Values {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// upsertSQL builds an INSERT ... ON CONFLICT DO UPDATE that reports whether
// the row was inserted (xmax = 0) or updated.
func upsertSQL(table string, cols, uniqueKeys []string) string {
	keys := make(map[string]bool, len(uniqueKeys))
	for _, k := range uniqueKeys {
		keys[k] = true
	}

	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
		params[i] = fmt.Sprintf("$%d", i+1)
		if !keys[c] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
		}
	}
	// DO UPDATE is still needed for RETURNING to see existing rows.
	if len(sets) == 0 {
		k := quoteIdentifier(uniqueKeys[0])
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", k, k))
	}

	conflict := make([]string, len(uniqueKeys))
	for i, k := range uniqueKeys {
		conflict[i] = quoteIdentifier(k)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s, updated_at = now() RETURNING (xmax = 0) AS inserted",
		quoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(params, ", "),
		strings.Join(conflict, ", "),
		strings.Join(sets, ", "),
	)
}

func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// describeError keeps the constraint detail of PostgreSQL errors.
func describeError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return fmt.Sprintf("persist: %s (%s)", pgErr.Message, pgErr.Detail)
		}
		return "persist: " + pgErr.Message
	}
	return "persist: " + err.Error()
}
