// Package admin provides administrative operations for database management.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/reportload/internal/core"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Truncater empties a table.
type Truncater interface {
	Truncate(ctx context.Context, table string) error
}

// Resetter empties the tables behind registered report and master types.
type Resetter struct {
	Store  Truncater
	Logger *slog.Logger
}

type resetFn func(ctx context.Context) error

// Reset truncates the tables of the given type keys, in order. Every key is
// checked against the registry before anything is truncated.
// It returns the tables that were emptied.
func (r *Resetter) Reset(ctx context.Context, typeKeys []string) ([]string, error) {
	defs := make([]core.Definition, 0, len(typeKeys))
	for _, key := range typeKeys {
		def, err := core.Get(key)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return r.reset(ctx, defs)
}

// ResetAll truncates the table of every registered type.
// This is a destructive operation - use with caution.
func (r *Resetter) ResetAll(ctx context.Context) ([]string, error) {
	return r.reset(ctx, core.All())
}

func (r *Resetter) reset(ctx context.Context, defs []core.Definition) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		tables []string
		resets []resetFn
	)
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		table := def.Info().Table
		if seen[table] {
			continue
		}
		seen[table] = true
		tables = append(tables, table)
		resets = append(resets, func(ctx context.Context) error {
			if err := r.Store.Truncate(ctx, table); err != nil {
				return err
			}
			logger.Info("table reset", "type", def.Info().Key, "table", table)
			return nil
		})
	}

	if err := r.runResets(ctx, resets); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return tables, nil
}

func (r *Resetter) runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
