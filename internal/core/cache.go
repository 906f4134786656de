package core

// cache.go builds the read-only reference cache for one ingestion run.
//
// Batchable fields are resolved once per distinct value rather than once per
// row. The Preloader collects distinct normalized values per field, queries
// the ReferenceSource in bounded chunks, and freezes the result into a Cache
// before the first transform runs. Cache has no mutating methods; per-row
// lookups through Resolve go straight to the source.

import (
	"context"
	"fmt"
)

// DefaultLookupChunkSize bounds the ids passed to one FindByIDs call.
const DefaultLookupChunkSize = 500

// SharedFinancialYear is the shared cache value holding the run's financial year.
const SharedFinancialYear = "financial_year"

// Cache is a read-only lookup structure scoped to one run.
type Cache struct {
	domains map[string]map[string]Ref
	shared  map[string]string
	source  ReferenceSource
}

// NewStaticCache builds a cache from already-resolved references.
func NewStaticCache(domains map[string][]Ref, shared map[string]string) *Cache {
	c := &Cache{
		domains: make(map[string]map[string]Ref, len(domains)),
		shared:  make(map[string]string, len(shared)),
	}
	for d, refs := range domains {
		tbl := make(map[string]Ref, len(refs))
		for _, r := range refs {
			tbl[NormalizeID(r.ID)] = r
		}
		c.domains[d] = tbl
	}
	for k, v := range shared {
		c.shared[k] = v
	}
	return c
}

// Lookup returns the reference for id in domain. Missing entries are a normal
// condition; callers apply their own fallback.
func (c *Cache) Lookup(domain, id string) (Ref, bool) {
	if c == nil {
		return Ref{}, false
	}
	r, ok := c.domains[domain][NormalizeID(id)]
	return r, ok
}

// Resolve looks up a single id directly against the reference source, for
// fields not worth preloading. The result is not added to the cache.
// A cache without a source reports every id as missing.
func (c *Cache) Resolve(ctx context.Context, domain, id string) (Ref, bool, error) {
	if c == nil || c.source == nil {
		return Ref{}, false, nil
	}
	id = NormalizeID(id)
	if id == "" {
		return Ref{}, false, nil
	}
	refs, err := c.source.FindByIDs(ctx, domain, []string{id})
	if err != nil {
		return Ref{}, false, fmt.Errorf("resolve %s %q: %w", domain, id, err)
	}
	for _, r := range refs {
		if NormalizeID(r.ID) == id {
			return r, true, nil
		}
	}
	return Ref{}, false, nil
}

// Shared returns a run-wide value such as the financial year.
func (c *Cache) Shared(name string) string {
	if c == nil {
		return ""
	}
	return c.shared[name]
}

// Size returns the number of entries cached for domain.
func (c *Cache) Size(domain string) int {
	if c == nil {
		return 0
	}
	return len(c.domains[domain])
}

// Preloader resolves batchable fields against a ReferenceSource.
type Preloader struct {
	Source    ReferenceSource
	ChunkSize int
	Shared    map[string]string
}

// Preload collects distinct values for each batchable field across rows and
// resolves them in ceil(M/ChunkSize) lookups per domain. Fields that share a
// domain are merged into a single id set. A transport error is fatal.
func (p *Preloader) Preload(ctx context.Context, rows []MappedRow, fields []BatchField) (*Cache, error) {
	size := p.ChunkSize
	if size <= 0 {
		size = DefaultLookupChunkSize
	}

	var order []string
	ids := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, f := range fields {
		norm := f.normalizer()
		if _, ok := seen[f.Domain]; !ok {
			seen[f.Domain] = make(map[string]bool)
			order = append(order, f.Domain)
		}
		for _, r := range rows {
			v := norm(r.Get(f.Field))
			if v == "" || seen[f.Domain][v] {
				continue
			}
			seen[f.Domain][v] = true
			ids[f.Domain] = append(ids[f.Domain], v)
		}
	}

	resolved := make(map[string][]Ref, len(order))
	for _, domain := range order {
		for _, part := range chunk(ids[domain], size) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			refs, err := p.Source.FindByIDs(ctx, domain, part)
			if err != nil {
				return nil, fmt.Errorf("preload %s: %w", domain, err)
			}
			resolved[domain] = append(resolved[domain], refs...)
		}
	}

	c := NewStaticCache(resolved, p.Shared)
	c.source = p.Source
	return c, nil
}

// chunk splits s into consecutive slices of at most size elements.
func chunk[T any](s []T, size int) [][]T {
	if len(s) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(s)+size-1)/size)
	for size < len(s) {
		s, out = s[size:], append(out, s[0:size:size])
	}
	return append(out, s)
}
