package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakeSource is an in-memory ReferenceSource that records every lookup.
type fakeSource struct {
	mu    sync.Mutex
	refs  map[string]map[string]Ref
	calls map[string][][]string
	err   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		refs:  make(map[string]map[string]Ref),
		calls: make(map[string][][]string),
	}
}

func (f *fakeSource) add(domain string, refs ...Ref) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refs[domain] == nil {
		f.refs[domain] = make(map[string]Ref)
	}
	for _, r := range refs {
		f.refs[domain][NormalizeID(r.ID)] = r
	}
}

func (f *fakeSource) FindByIDs(ctx context.Context, domain string, ids []string) ([]Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[domain] = append(f.calls[domain], append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []Ref
	for _, id := range ids {
		if r, ok := f.refs[domain][NormalizeID(id)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) callCount(domain string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[domain])
}

// fakePersister stores records by table and key. failCalls makes the n-th
// BulkUpsert call (1-based) fail as a whole.
type fakePersister struct {
	mu        sync.Mutex
	tables    map[string]map[string]map[string]any
	calls     int
	batches   []int
	failCalls map[int]error
}

func newFakePersister() *fakePersister {
	return &fakePersister{
		tables:    make(map[string]map[string]map[string]any),
		failCalls: make(map[int]error),
	}
}

func (p *fakePersister) BulkUpsert(ctx context.Context, table string, uniqueKeys []string, records []Record) (UpsertSummary, error) {
	if err := ctx.Err(); err != nil {
		return UpsertSummary{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.batches = append(p.batches, len(records))
	if err := p.failCalls[p.calls]; err != nil {
		return UpsertSummary{}, err
	}

	tbl := p.tables[table]
	if tbl == nil {
		tbl = make(map[string]map[string]any)
		p.tables[table] = tbl
	}

	var sum UpsertSummary
	for _, r := range records {
		key, ok := CompositeKey(r.Values, uniqueKeys)
		if !ok {
			sum.Errors = append(sum.Errors, RowError{Row: r.Row, Message: "unique key is empty"})
			continue
		}
		_, exists := tbl[key]
		tbl[key] = r.Values
		if exists {
			sum.Updated++
		} else {
			sum.Created++
		}
		sum.Entities = append(sum.Entities, Entity{Row: r.Row, Key: key, Created: !exists})
	}
	return sum, nil
}

func (p *fakePersister) count(table string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tables[table])
}

func (p *fakePersister) get(table, key string) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tables[table][key]
}

// widget is the record type of the test-only registered types.
type widget struct {
	ID        string
	Name      string
	Owner     string
	OwnerName string
	Qty       int64
	FY        string
}

const (
	widgetKey     = "test_widget"
	slowWidgetKey = "test_slow_widget"
)

var errBadName = errors.New("name is bad")

func widgetTransform(ctx context.Context, row MappedRow, cache *Cache) (widget, error) {
	w := widget{
		ID:    NormalizeID(row.Get("widget_id")),
		Name:  row.Get("name"),
		Owner: NormalizeID(row.Get("owner")),
		Qty:   ParseInt(row.Get("qty")),
		FY:    cache.Shared(SharedFinancialYear),
	}
	switch strings.ToLower(w.Name) {
	case "panic":
		panic("boom")
	case "bad":
		return widget{}, errBadName
	}
	if w.Owner != "" {
		ref, ok := cache.Lookup("owner", w.Owner)
		if !ok {
			return widget{}, fmt.Errorf("owner %q not found", w.Owner)
		}
		w.OwnerName = ref.Attr("name")
	}
	return w, nil
}

func widgetValidate(ctx context.Context, env *ValidationEnv, rows []Row[widget]) ([]Row[widget], []RowError, error) {
	kept := rows[:0:0]
	var rejected []RowError
	for _, r := range rows {
		switch {
		case r.Record.Qty < 0:
			rejected = append(rejected, RowError{Row: r.Number, Message: "qty must not be negative"})
		case r.Record.Qty == 999:
			// silently dropped
		default:
			kept = append(kept, r)
		}
	}
	return kept, rejected, nil
}

func widgetRecord(w widget) Record {
	return Record{Values: map[string]any{
		"widget_id":  w.ID,
		"name":       NullIfEmpty(w.Name),
		"owner_id":   NullIfEmpty(w.Owner),
		"owner_name": NullIfEmpty(w.OwnerName),
		"qty":        w.Qty,
		"fy":         w.FY,
	}}
}

var widgetColumns = []Column{
	{Source: "ID", Field: "widget_id", Required: true},
	{Source: "NAME", Field: "name"},
	{Source: "OWNER", Field: "owner"},
	{Source: "QTY", Field: "qty"},
}

func init() {
	Register(Define(Spec[widget]{
		Info:       TypeInfo{Key: widgetKey, Group: "Test", Label: "Widget", EntityName: "Widget"},
		Columns:    widgetColumns,
		UniqueKeys: []string{"widget_id"},
		Batchable:  []BatchField{{Field: "owner", Domain: "owner"}},
		Transform:  widgetTransform,
		Validate:   widgetValidate,
		Record:     widgetRecord,
	}))

	Register(Define(Spec[widget]{
		Info:       TypeInfo{Key: slowWidgetKey, Group: "Test", Label: "Slow Widget"},
		Columns:    widgetColumns,
		UniqueKeys: []string{"widget_id"},
		Transform: func(ctx context.Context, row MappedRow, cache *Cache) (widget, error) {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return widget{}, ctx.Err()
			}
			return widgetTransform(ctx, row, cache)
		},
		Record: widgetRecord,
	}))
}
