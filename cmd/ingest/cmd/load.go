package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/JonMunkholm/reportload/internal/store"
	"github.com/spf13/cobra"
)

type loadOptions struct {
	typeKey      string
	file         string
	seeds        []string
	dryRun       bool
	stream       bool
	failOnErrors bool
}

// backend is what a run reads references from and writes records to.
type backend interface {
	core.ReferenceSource
	core.Persister
}

func newLoadCmd(a *app) *cobra.Command {
	opts := &loadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Ingest one file as a report or master type",
		Long: `Load parses the first sheet of a file, maps it through the type's columns,
resolves reference data, and upserts every valid row. Row failures are
reported in the JSON result; file-level failures abort with an error.

With --dry-run the run uses an in-memory store instead of PostgreSQL.
--seed files are loaded into that store first, in order, so reports can
resolve clients and securities from masters in the same invocation.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range opts.seeds {
				if _, _, err := parseSeed(s); err != nil {
					return err
				}
			}
			return validateFile(opts.file)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLoad(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.typeKey, "type", "t", "", "type key, see 'ingest types' (required)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to the .xlsx, .xls or .csv file (required)")
	cmd.Flags().StringArrayVar(&opts.seeds, "seed", nil, "type=path loaded before --file; repeatable")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "use an in-memory store instead of the database")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "parse the file lazily instead of reading it whole")
	cmd.Flags().BoolVar(&opts.failOnErrors, "fail-on-errors", false, "exit non-zero when any row fails")

	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) runLoad(cmd *cobra.Command, opts *loadOptions) error {
	ctx := cmd.Context()

	be, closeFn, err := a.openBackend(ctx, opts.dryRun)
	if err != nil {
		return err
	}
	defer closeFn()

	svc := core.NewService(be, be, a.cfg.Ingest.Options())

	for _, s := range opts.seeds {
		typeKey, path, _ := parseSeed(s)
		res, err := ingestFile(ctx, svc, typeKey, path, opts.stream)
		if err != nil {
			return fmt.Errorf("seed %s: %w", typeKey, err)
		}
		a.logger.Info("seed loaded", "type", typeKey, "file", path,
			"created", res.Created, "updated", res.Updated, "failed", res.Failed)
	}

	res, err := ingestFile(ctx, svc, opts.typeKey, opts.file, opts.stream)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if opts.failOnErrors && res.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", res.Failed, res.Total)
	}
	return nil
}

// openBackend returns the in-memory store for dry runs, or PostgreSQL.
func (a *app) openBackend(ctx context.Context, dryRun bool) (backend, func(), error) {
	if dryRun {
		return store.NewMemStore(), func() {}, nil
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, fmt.Errorf("%w (or use --dry-run)", err)
	}
	return a.openPostgres(ctx)
}

// openPostgres connects to the configured database. The CLI keeps no idle
// connections between commands.
func (a *app) openPostgres(ctx context.Context) (*store.Postgres, func(), error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	dbCfg := a.cfg.Database
	dbCfg.MinConns = 0
	db, err := store.Connect(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func ingestFile(ctx context.Context, svc *core.Service, typeKey, path string, stream bool) (*core.BulkResult, error) {
	name := filepath.Base(path)
	if stream {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return svc.IngestStream(ctx, typeKey, name, f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return svc.Ingest(ctx, typeKey, name, data)
}

// parseSeed splits a "type=path" seed argument.
func parseSeed(s string) (typeKey, path string, err error) {
	typeKey, path, ok := strings.Cut(s, "=")
	if !ok || typeKey == "" || path == "" {
		return "", "", fmt.Errorf("invalid --seed %q: want type=path", s)
	}
	if _, err := core.Get(typeKey); err != nil {
		return "", "", err
	}
	return typeKey, path, validateFile(path)
}

func validateFile(path string) error {
	if path == "" {
		return fmt.Errorf("file path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}
