package core

// validation.go provides the building blocks for per-type row validation.
//
// Validation happens at two levels:
//  1. Header validation: required columns must be present (fatal for the file)
//  2. Row validation: in-file duplicates and referenced master data, per row
//
// Row validation is stateless across runs. DuplicateFilter remembers keys
// for the current file only, and ValidationEnv answers batched existence
// questions against the ReferenceSource.

import (
	"context"
	"fmt"
)

// ValidateHeaders checks that every required header is present.
// Returns the header index, or *MissingColumnsError listing what is absent.
func ValidateHeaders(headers []string, required []string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, name := range required {
		if _, ok := idx[NormalizeHeader(name)]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return idx, nil
}

// DuplicateFilter detects repeated natural keys within one file.
type DuplicateFilter struct {
	seen map[string]int
}

// NewDuplicateFilter returns an empty filter.
func NewDuplicateFilter() *DuplicateFilter {
	return &DuplicateFilter{seen: make(map[string]int)}
}

// Check records key for row. A key already seen returns an error naming the
// first row; the earlier row is kept.
func (f *DuplicateFilter) Check(key string, row int) error {
	if first, ok := f.seen[key]; ok {
		return fmt.Errorf("duplicate %q, first seen at row %d", key, first)
	}
	f.seen[key] = row
	return nil
}

// ValidationEnv gives validators batched read access to reference data.
type ValidationEnv struct {
	refs      ReferenceSource
	chunkSize int
}

// NewValidationEnv wraps refs for use by validators.
func NewValidationEnv(refs ReferenceSource, chunkSize int) *ValidationEnv {
	if chunkSize <= 0 {
		chunkSize = DefaultLookupChunkSize
	}
	return &ValidationEnv{refs: refs, chunkSize: chunkSize}
}

// Existing returns the subset of ids that exist in domain, keyed by
// normalized id. Distinct ids are queried in chunks.
func (e *ValidationEnv) Existing(ctx context.Context, domain string, ids []string) (map[string]struct{}, error) {
	distinct := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		n := NormalizeID(id)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		distinct = append(distinct, n)
	}

	found := make(map[string]struct{}, len(distinct))
	for _, part := range chunk(distinct, e.chunkSize) {
		refs, err := e.refs.FindByIDs(ctx, domain, part)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", domain, err)
		}
		for _, r := range refs {
			found[NormalizeID(r.ID)] = struct{}{}
		}
	}
	return found, nil
}

// RejectDuplicates drops rows whose key repeats an earlier row's key.
// Rows with an empty key are passed through for later stages to judge.
func RejectDuplicates[R any](rows []Row[R], key func(R) string) ([]Row[R], []RowError) {
	f := NewDuplicateFilter()
	kept := rows[:0:0]
	var rejected []RowError
	for _, r := range rows {
		k := NormalizeID(key(r.Record))
		if k == "" {
			kept = append(kept, r)
			continue
		}
		if err := f.Check(k, r.Number); err != nil {
			rejected = append(rejected, RowError{Row: r.Number, Message: err.Error()})
			continue
		}
		kept = append(kept, r)
	}
	return kept, rejected
}

// RequireExisting drops rows whose reference (from ref) is absent in domain.
// Rows with an empty reference are kept. label names the reference in errors.
func RequireExisting[R any](ctx context.Context, env *ValidationEnv, rows []Row[R], domain, label string, ref func(R) string) ([]Row[R], []RowError, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, ref(r.Record))
	}
	found, err := env.Existing(ctx, domain, ids)
	if err != nil {
		return nil, nil, err
	}

	kept := rows[:0:0]
	var rejected []RowError
	for _, r := range rows {
		id := NormalizeID(ref(r.Record))
		if id == "" {
			kept = append(kept, r)
			continue
		}
		if _, ok := found[id]; !ok {
			rejected = append(rejected, RowError{Row: r.Number, Message: fmt.Sprintf("%s %q does not exist", label, id)})
			continue
		}
		kept = append(kept, r)
	}
	return kept, rejected, nil
}
