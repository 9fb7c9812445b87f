// Package db owns the Postgres connection pool and embedded schema
// migrations for the employee profile store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds pool settings for the profile store connection.
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
	// QueryTimeout bounds every repository round trip so a slow store cannot
	// hang the authority indefinitely. Zero disables the per-query bound.
	QueryTimeout time.Duration
}

// DB wraps a pgx pool with a per-query timeout policy.
type DB struct {
	Pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// New opens a pool for the given config and verifies it with a ping.
// Caller must Close when shutting down.
func New(ctx context.Context, cfg Config) (*DB, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool, queryTimeout: cfg.QueryTimeout}, nil
}

// WithTimeout derives a query-scoped context from ctx.
func (d *DB) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.queryTimeout)
}

// Ping reports whether the store is reachable; used by health checks.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close releases the pool.
func (d *DB) Close() {
	d.Pool.Close()
}
