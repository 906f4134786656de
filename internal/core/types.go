package core

import (
	"context"
	"strconv"
	"time"
)

// TypeInfo contains display and routing information about a report/master type.
type TypeInfo struct {
	Key        string // Unique identifier: "risk_report"
	Group      string // "Master" or "Report"
	Label      string // Display name: "Risk Report"
	Table      string // Target table: "risk_report"
	EntityName string // Name used in aggregated row errors: "RiskReport"
}

// Column maps one source header to one target field.
type Column struct {
	Source   string // Header as it appears in the file (matched case-insensitively)
	Field    string // Target field / column name
	Required bool   // Header must exist and every row must carry a value
}

// BatchField declares a target field whose value is resolved against shared
// reference data once per distinct value instead of once per row.
type BatchField struct {
	Field     string              // Target field holding the identifier
	Domain    string              // Reference domain: "client", "isin_master", ...
	Normalize func(string) string // Defaults to NormalizeID
}

func (b BatchField) normalizer() func(string) string {
	if b.Normalize != nil {
		return b.Normalize
	}
	return NormalizeID
}

// Ref is a reference record returned by a ReferenceSource.
type Ref struct {
	ID    string
	Attrs map[string]string
}

// Attr returns the named attribute or "" if absent.
func (r Ref) Attr(name string) string {
	return r.Attrs[name]
}

// ReferenceSource resolves reference ids within a domain. Implementations must
// return an empty or partial result (not an error) for ids that do not exist.
type ReferenceSource interface {
	FindByIDs(ctx context.Context, domain string, ids []string) ([]Ref, error)
}

// Record is a persistence-ready row. Values are keyed by column name.
type Record struct {
	Row    int
	Key    string
	Values map[string]any
}

// Entity identifies a persisted record.
type Entity struct {
	Row     int    `json:"row"`
	Key     string `json:"key"`
	Created bool   `json:"created"`
}

// UpsertSummary is returned by a Persister for one batch of records.
type UpsertSummary struct {
	Created  int
	Updated  int
	Entities []Entity
	Errors   []RowError
}

// Persister writes records, matching existing ones by the unique key columns.
// Calling BulkUpsert twice with the same records must converge to the same state.
type Persister interface {
	BulkUpsert(ctx context.Context, table string, uniqueKeys []string, records []Record) (UpsertSummary, error)
}

// RowError describes why a specific row could not be persisted.
// Row is 1-based with the header counted as row 1. Code is set on the
// errors of a BulkResult; see RowErrorCode.
type RowError struct {
	Row        int    `json:"row"`
	EntityName string `json:"entityName,omitempty"`
	Message    string `json:"error"`
	Code       string `json:"code,omitempty"`
}

func (e RowError) Error() string {
	return "row " + strconv.Itoa(e.Row) + ": " + e.Message
}

// Row is a successfully transformed record tagged with its file row number.
type Row[R any] struct {
	Number int
	Record R
}

// Outcome is the per-row result of a transform: either Record or Err.
type Outcome[R any] struct {
	Number int
	Record R
	Err    error
}

// OK reports whether the transform succeeded.
func (o Outcome[R]) OK() bool {
	return o.Err == nil
}

// BulkResult is the terminal artifact of one ingestion run.
type BulkResult struct {
	RunID    string        `json:"runId"`
	TypeKey  string        `json:"typeKey"`
	FileName string        `json:"fileName,omitempty"`
	Total    int           `json:"total"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Errors   []RowError    `json:"errors"`
	Entities []Entity      `json:"createdEntities"`
	Duration time.Duration `json:"-"`
}
