package core

import (
	"context"
	"fmt"
)

// TransformFunc converts one mapped row into a typed record. It may perform
// its own lookups through ctx-aware collaborators; the cache is read-only.
type TransformFunc[R any] func(ctx context.Context, row MappedRow, cache *Cache) (R, error)

// ValidateFunc performs cross-row and reference checks over the full set of
// transformed rows. Rows it returns in valid are persisted; rejected rows are
// reported. A non-nil error aborts the run.
type ValidateFunc[R any] func(ctx context.Context, env *ValidationEnv, rows []Row[R]) (valid []Row[R], rejected []RowError, err error)

// RecordFunc converts a typed record into column values for persistence.
type RecordFunc[R any] func(R) Record

// Spec is the typed description of one report/master type.
type Spec[R any] struct {
	Info       TypeInfo
	Columns    []Column
	UniqueKeys []string
	Batchable  []BatchField
	Transform  TransformFunc[R]
	Validate   ValidateFunc[R] // optional
	Record     RecordFunc[R]
}

// Definition is the capability every registered type exposes to the engine.
// It can only be constructed with Define.
type Definition interface {
	Info() TypeInfo
	Columns() []Column
	UniqueKeys() []string
	Batchable() []BatchField
	RequiredHeaders() []string

	process(ctx context.Context, env *runEnv, rows []MappedRow, cache *Cache) (stageResult, error)
}

// runEnv carries the per-run collaborators handed to a definition.
type runEnv struct {
	chunkSize  int
	validation *ValidationEnv
	executor   *Executor
}

// stageResult is what a definition hands back after transform, validate and upsert.
type stageResult struct {
	errors  []RowError
	summary UpsertSummary
}

// Define checks a Spec and wraps it as a Definition.
// It panics on an incomplete spec; specs are static tables built at init.
func Define[R any](s Spec[R]) Definition {
	if s.Info.Key == "" {
		panic("core: spec has no key")
	}
	if s.Info.Table == "" {
		s.Info.Table = s.Info.Key
	}
	if s.Info.EntityName == "" {
		s.Info.EntityName = s.Info.Label
	}
	if s.Transform == nil || s.Record == nil {
		panic(fmt.Sprintf("core: spec %s needs Transform and Record", s.Info.Key))
	}
	if len(s.UniqueKeys) == 0 {
		panic(fmt.Sprintf("core: spec %s declares no unique keys", s.Info.Key))
	}

	fields := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		fields[c.Field] = true
	}
	for _, b := range s.Batchable {
		if !fields[b.Field] {
			panic(fmt.Sprintf("core: spec %s batches undeclared field %q", s.Info.Key, b.Field))
		}
	}

	return &typed[R]{spec: s}
}

type typed[R any] struct {
	spec Spec[R]
}

func (t *typed[R]) Info() TypeInfo          { return t.spec.Info }
func (t *typed[R]) Columns() []Column       { return t.spec.Columns }
func (t *typed[R]) UniqueKeys() []string    { return t.spec.UniqueKeys }
func (t *typed[R]) Batchable() []BatchField { return t.spec.Batchable }

func (t *typed[R]) RequiredHeaders() []string {
	var out []string
	for _, c := range t.spec.Columns {
		if c.Required {
			out = append(out, c.Source)
		}
	}
	return out
}

func (t *typed[R]) process(ctx context.Context, env *runEnv, rows []MappedRow, cache *Cache) (stageResult, error) {
	var res stageResult

	outcomes := TransformRows(ctx, rows, cache, t.spec.Transform, env.chunkSize)

	valid := make([]Row[R], 0, len(outcomes))
	for _, o := range outcomes {
		if !o.OK() {
			res.errors = append(res.errors, RowError{Row: o.Number, Message: o.Err.Error()})
			continue
		}
		valid = append(valid, Row[R]{Number: o.Number, Record: o.Record})
	}

	if t.spec.Validate != nil && len(valid) > 0 {
		kept, rejected, err := t.spec.Validate(ctx, env.validation, valid)
		if err != nil {
			return res, fmt.Errorf("validate %s: %w", t.spec.Info.Key, err)
		}
		res.errors = append(res.errors, rejected...)

		// A row the validator neither kept nor rejected still counts as failed.
		accounted := make(map[int]bool, len(valid))
		for _, r := range kept {
			accounted[r.Number] = true
		}
		for _, e := range rejected {
			accounted[e.Row] = true
		}
		for _, r := range valid {
			if !accounted[r.Number] {
				res.errors = append(res.errors, RowError{Row: r.Number, Message: "rejected by validation"})
			}
		}
		valid = kept
	}

	records := make([]Record, 0, len(valid))
	keys := NewDuplicateFilter()
	for _, r := range valid {
		rec := t.spec.Record(r.Record)
		rec.Row = r.Number

		key, ok := CompositeKey(rec.Values, t.spec.UniqueKeys)
		if !ok {
			res.errors = append(res.errors, RowError{Row: r.Number, Message: "unique key is empty"})
			continue
		}
		if err := keys.Check(key, r.Number); err != nil {
			res.errors = append(res.errors, RowError{Row: r.Number, Message: "duplicate unique key: " + err.Error()})
			continue
		}
		rec.Key = key
		records = append(records, rec)
	}

	summary, err := env.executor.Upsert(ctx, t.spec.Info.Table, t.spec.UniqueKeys, records)
	if err != nil {
		return res, err
	}
	res.summary = summary
	return res, nil
}
