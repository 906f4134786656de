package core

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/JonMunkholm/reportload/internal/logging"
	"github.com/google/uuid"
)

// Options tune a Service. Zero values fall back to the package defaults.
type Options struct {
	ChunkSize       int           // rows per transform chunk and records per upsert batch
	LookupChunkSize int           // ids per reference lookup
	Timeout         time.Duration // per-run deadline
	MaxConcurrent   int           // simultaneous runs
	MaxWait         time.Duration // wait for a free run slot
	MaxFileSize     int64         // bytes; zero means DefaultMaxFileSize, negative disables the check
	HistorySize     int           // finished runs kept for lookup
}

// DefaultRunTimeout is the maximum duration of a single run.
const DefaultRunTimeout = 10 * time.Minute

// DefaultMaxFileSize is the default upload limit (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.LookupChunkSize <= 0 {
		o.LookupChunkSize = DefaultLookupChunkSize
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultRunTimeout
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	return o
}

// Service is the ingestion entry point used by the HTTP layer and the CLI.
type Service struct {
	refs      ReferenceSource
	persister Persister
	opts      Options
	limiter   *RunLimiter
	history   *History
	now       func() time.Time
}

// NewService creates a Service backed by the given collaborators.
func NewService(refs ReferenceSource, persister Persister, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		refs:      refs,
		persister: persister,
		opts:      opts,
		limiter:   NewRunLimiter(opts.MaxConcurrent, opts.MaxWait),
		history:   NewHistory(opts.HistorySize),
		now:       time.Now,
	}
}

// WithClock replaces the clock used for shared values such as the financial year.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Types returns information about all registered types.
func (s *Service) Types() []TypeInfo {
	defs := All()
	infos := make([]TypeInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info()
	}
	return infos
}

// Ingest parses data eagerly and loads it as typeKey. Fatal problems are
// returned as errors; row problems are reported in the result.
func (s *Service) Ingest(ctx context.Context, typeKey, fileName string, data []byte) (*BulkResult, error) {
	def, err := Get(typeKey)
	if err != nil {
		return nil, err
	}
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%s: %w", fileName, ErrFileTooLarge)
	}

	return s.guarded(ctx, def, fileName, func(ctx context.Context) (iter.Seq2[RawRow, error], error) {
		sheet, err := ParseSheet(data, fileName, def.RequiredHeaders())
		if err != nil {
			return nil, err
		}
		return sliceSeq(sheet.Rows()), nil
	})
}

// IngestStream reads r lazily and loads it as typeKey.
func (s *Service) IngestStream(ctx context.Context, typeKey, fileName string, r io.Reader) (*BulkResult, error) {
	def, err := Get(typeKey)
	if err != nil {
		return nil, err
	}

	return s.guarded(ctx, def, fileName, func(ctx context.Context) (iter.Seq2[RawRow, error], error) {
		stream, err := StreamSheet(r, fileName, def.RequiredHeaders(), s.opts.MaxFileSize)
		if err != nil {
			return nil, err
		}
		return stream.Rows(), nil
	})
}

// Run returns a finished run by id.
func (s *Service) Run(runID string) (*BulkResult, bool) {
	return s.history.Get(runID)
}

// RecentRuns returns finished runs, newest first.
func (s *Service) RecentRuns() []*BulkResult {
	return s.history.Recent()
}

// LimiterStatus returns the current run slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until all active runs finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

type openFunc func(ctx context.Context) (iter.Seq2[RawRow, error], error)

// guarded acquires a run slot, applies the run timeout and records history.
func (s *Service) guarded(ctx context.Context, def Definition, fileName string, open openFunc) (*BulkResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithFields(ctx, "type", def.Info().Key, "file", fileName)
	start := time.Now()

	logger.Info("ingestion started")

	rows, err := open(ctx)
	if err != nil {
		logger.Warn("ingestion rejected", "error", err)
		return nil, err
	}

	result, err := s.run(ctx, def, rows, logger)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	result.RunID = runID
	result.FileName = fileName
	result.Duration = time.Since(start)
	s.history.Add(result)

	logger.Info("ingestion finished",
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

// run maps every row, preloads the cache, then hands off to the definition.
func (s *Service) run(ctx context.Context, def Definition, rows iter.Seq2[RawRow, error], logger *slog.Logger) (*BulkResult, error) {
	info := def.Info()
	result := &BulkResult{TypeKey: info.Key}

	var mapped []MappedRow
	var rowErrs []RowError
	for raw, err := range rows {
		if err != nil {
			return nil, err
		}
		result.Total++
		m, errs := MapRow(raw, def.Columns())
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		mapped = append(mapped, m)
	}

	pre := &Preloader{
		Source:    s.refs,
		ChunkSize: s.opts.LookupChunkSize,
		Shared:    map[string]string{SharedFinancialYear: FinancialYear(s.now())},
	}
	cache, err := pre.Preload(ctx, mapped, def.Batchable())
	if err != nil {
		return nil, err
	}
	for _, b := range def.Batchable() {
		logger.Debug("cache preloaded", "domain", b.Domain, "entries", cache.Size(b.Domain))
	}

	env := &runEnv{
		chunkSize:  s.opts.ChunkSize,
		validation: NewValidationEnv(s.refs, s.opts.LookupChunkSize),
		executor:   NewExecutor(s.persister, s.opts.ChunkSize, logger),
	}
	stage, err := def.process(ctx, env, mapped, cache)
	if err != nil {
		return nil, err
	}

	rowErrs = append(rowErrs, stage.errors...)
	rowErrs = append(rowErrs, stage.summary.Errors...)
	for i := range rowErrs {
		rowErrs[i].EntityName = info.EntityName
		rowErrs[i].Code = RowErrorCode(rowErrs[i].Message)
	}
	slices.SortStableFunc(rowErrs, func(a, b RowError) int { return a.Row - b.Row })

	failed := make(map[int]struct{}, len(rowErrs))
	for _, e := range rowErrs {
		failed[e.Row] = struct{}{}
	}

	result.Created = stage.summary.Created
	result.Updated = stage.summary.Updated
	result.Failed = len(failed)
	result.Errors = rowErrs
	result.Entities = stage.summary.Entities
	if result.Errors == nil {
		result.Errors = []RowError{}
	}
	if result.Entities == nil {
		result.Entities = []Entity{}
	}
	slices.SortStableFunc(result.Entities, func(a, b Entity) int { return a.Row - b.Row })
	return result, nil
}

func sliceSeq(rows []RawRow) iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}
