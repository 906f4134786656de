package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/reportload/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool sized by cfg, verifies it with a ping and applies
// the schema when AutoMigrate is set. The caller owns Close.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("connect: empty database URL")
	}
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns >= 0 && cfg.MinConns <= cfg.MaxConns {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db := NewPostgres(pool)
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return db, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
