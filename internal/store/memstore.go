package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/reportload/internal/core"
)

// Lookup records one FindByIDs call made against a MemStore.
type Lookup struct {
	Domain string
	IDs    []string
}

// MemStore is an in-memory ReferenceSource and Persister. Master tables
// upserted into it become reference domains, so a dry run that loads a
// branch master followed by a client master resolves clients the same way
// the PostgreSQL store would.
type MemStore struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]any
	refs     map[string]map[string]core.Ref
	lookups  []Lookup
	lookErr  error
	upErr    map[string]error
	rowFails map[string]map[string]string
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		tables:   make(map[string]map[string]map[string]any),
		refs:     make(map[string]map[string]core.Ref),
		upErr:    make(map[string]error),
		rowFails: make(map[string]map[string]string),
	}
}

// AddRefs seeds reference data for domain directly.
func (m *MemStore) AddRefs(domain string, refs ...core.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range refs {
		m.putRef(domain, r)
	}
}

// FailLookups makes every subsequent FindByIDs call return err. Pass nil to
// clear it.
func (m *MemStore) FailLookups(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookErr = err
}

// FailUpsert makes BulkUpsert into table return err for the whole batch.
func (m *MemStore) FailUpsert(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.upErr, table)
		return
	}
	m.upErr[table] = err
}

// FailRecord makes the record with the given composite key fail with msg,
// while the rest of its batch succeeds.
func (m *MemStore) FailRecord(table, key, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rowFails[table] == nil {
		m.rowFails[table] = make(map[string]string)
	}
	m.rowFails[table][key] = msg
}

// FindByIDs implements core.ReferenceSource.
func (m *MemStore) FindByIDs(ctx context.Context, domain string, ids []string) ([]core.Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups = append(m.lookups, Lookup{Domain: domain, IDs: append([]string(nil), ids...)})
	if m.lookErr != nil {
		return nil, m.lookErr
	}

	var out []core.Ref
	for _, id := range ids {
		if r, ok := m.refs[domain][core.NormalizeID(id)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Lookups returns every FindByIDs call made so far.
func (m *MemStore) Lookups() []Lookup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Lookup(nil), m.lookups...)
}

// LookupCount returns the number of FindByIDs calls made against domain.
func (m *MemStore) LookupCount(domain string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lookups {
		if l.Domain == domain {
			n++
		}
	}
	return n
}

// BulkUpsert implements core.Persister. Records are matched on the composite
// of their unique key columns; a repeated key overwrites the stored values.
func (m *MemStore) BulkUpsert(ctx context.Context, table string, uniqueKeys []string, records []core.Record) (core.UpsertSummary, error) {
	var summary core.UpsertSummary
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.upErr[table]; err != nil {
		return summary, err
	}

	rows := m.tables[table]
	if rows == nil {
		rows = make(map[string]map[string]any)
		m.tables[table] = rows
	}

	for _, rec := range records {
		key, ok := core.CompositeKey(rec.Values, uniqueKeys)
		if !ok {
			summary.Errors = append(summary.Errors, core.RowError{Row: rec.Row, Message: "persist: unique key is empty"})
			continue
		}
		if msg, failed := m.rowFails[table][key]; failed {
			summary.Errors = append(summary.Errors, core.RowError{Row: rec.Row, Message: "persist: " + msg})
			continue
		}

		values := make(map[string]any, len(rec.Values))
		for k, v := range rec.Values {
			values[k] = v
		}
		_, exists := rows[key]
		rows[key] = values
		m.index(table, values)

		if exists {
			summary.Updated++
		} else {
			summary.Created++
		}
		summary.Entities = append(summary.Entities, core.Entity{Row: rec.Row, Key: rec.Key, Created: !exists})
	}
	return summary, nil
}

// Get returns the stored values for a composite key, e.g. "C1" or
// "C1|2026-04-01".
func (m *MemStore) Get(table, key string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.tables[table][key]
	return v, ok
}

// Rows returns the stored rows of table ordered by composite key.
func (m *MemStore) Rows(table string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.tables[table]))
	for k := range m.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		out[i] = m.tables[table][k]
	}
	return out
}

// Count returns the number of rows stored in table.
func (m *MemStore) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

// mirrors maps master tables to the reference domain they populate.
var mirrors = map[string]string{
	"branch_master":   "branch",
	"employee_master": "employee",
	"client_master":   "client",
	"isin_master":     "isin_master",
	"state_master":    "state",
}

// Truncate removes every row of table along with the reference domain it
// populated.
func (m *MemStore) Truncate(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, table)
	if domain, ok := mirrors[table]; ok {
		delete(m.refs, domain)
	}
	return nil
}

// index mirrors master rows into the reference domains the report types
// resolve against. Caller holds m.mu.
func (m *MemStore) index(table string, v map[string]any) {
	switch table {
	case "branch_master":
		m.putRef("branch", core.Ref{ID: text(v["branch_id"]), Attrs: map[string]string{
			"branch_name":      text(v["branch_name"]),
			"region_branch_id": text(v["region_branch_id"]),
		}})
	case "employee_master":
		m.putRef("employee", core.Ref{ID: text(v["employee_id"]), Attrs: map[string]string{
			"name":      text(v["name"]),
			"branch_id": text(v["branch_id"]),
		}})
	case "client_master":
		branch := text(v["branch_id"])
		region := branch
		if b, ok := m.refs["branch"][core.NormalizeID(branch)]; ok && b.Attr("region_branch_id") != "" {
			region = b.Attr("region_branch_id")
		}
		m.putRef("client", core.Ref{ID: text(v["client_id"]), Attrs: map[string]string{
			"client_name":      text(v["client_name"]),
			"branch_id":        branch,
			"region_branch_id": region,
		}})
	case "isin_master":
		m.putRef("isin_master", core.Ref{ID: text(v["isin"]), Attrs: map[string]string{
			"security_name": text(v["security_name"]),
			"symbol":        text(v["symbol"]),
		}})
	case "state_master":
		m.putRef("state", core.Ref{ID: strings.ToUpper(text(v["state_name"])), Attrs: map[string]string{
			"state_id": text(v["state_id"]),
		}})
	}
}

func (m *MemStore) putRef(domain string, r core.Ref) {
	id := core.NormalizeID(r.ID)
	if id == "" {
		return
	}
	if m.refs[domain] == nil {
		m.refs[domain] = make(map[string]core.Ref)
	}
	m.refs[domain][id] = r
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	default:
		return fmt.Sprint(x)
	}
}
