package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/mailboard/internal/config"
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Execer is the subset of *pgxpool.Pool used by EnsureSchema.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the archive tables. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS emails (
		id            TEXT PRIMARY KEY,
		thread_id     TEXT NOT NULL DEFAULT '',
		sender        TEXT NOT NULL DEFAULT '',
		subject       TEXT NOT NULL DEFAULT '',
		snippet       TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		importance    SMALLINT NOT NULL DEFAULT 0,
		received_at   TIMESTAMPTZ,
		is_full       BOOLEAN NOT NULL DEFAULT FALSE,
		original_link TEXT NOT NULL DEFAULT '',
		archived_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS emails_importance_idx ON emails (importance DESC, received_at DESC)`,
	`CREATE TABLE IF NOT EXISTS calendar_events (
		email_id    TEXT NOT NULL,
		starts_at   TIMESTAMPTZ NOT NULL,
		event_type  TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		importance  SMALLINT NOT NULL DEFAULT 0,
		confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
		archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (email_id, starts_at)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		kind       TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		count      INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema runs Schema in order.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
