// Package core is the generic engine for loading brokerage report and master
// spreadsheets into a relational store.
//
// The package holds all ingestion logic independent of any transport. It is
// used by the HTTP server and the ingest CLI without modification.
//
// # Pipeline
//
// One run moves a single file through fixed stages:
//
//  1. [ParseSheet] or [StreamSheet] reads the first sheet into [RawRow] values
//     and rejects files with missing required headers
//  2. [MapRow] renames source headers to target fields
//  3. [Preloader] resolves batchable fields into a read-only [Cache]
//  4. [TransformRows] builds typed records in concurrent chunks
//  5. The type's optional validator rejects duplicates and dangling references
//  6. [Executor] upserts the rest through a [Persister]
//
// Row problems at any stage become [RowError] values in the [BulkResult];
// only file-level problems ([NoSheetError], [EmptyFileError],
// [MissingColumnsError], [UnknownTypeError]) fail the call itself.
//
// # Type Registry
//
// Types are registered at init time. Each is written as a typed [Spec] and
// wrapped with [Define]:
//
//	core.Register(core.Define(core.Spec[Risk]{
//	    Info:       core.TypeInfo{Key: "risk_report", Group: "Report", Label: "Risk Report"},
//	    Columns:    []core.Column{{Source: "CLIENT_ID", Field: "client_id", Required: true}},
//	    UniqueKeys: []string{"client_id"},
//	    Transform:  transformRisk,
//	    Record:     riskRecord,
//	}))
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
package core
