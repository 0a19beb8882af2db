package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
)

// DB wraps the database connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection
func New(cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// DSN renders the connection string for cfg
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		cfg.MaxConns, cfg.MinConns,
	)
}

// Migrate creates the tables used by the repository if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks if the database is healthy
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	video_key        TEXT NOT NULL,
	video_name       TEXT NOT NULL,
	status           TEXT NOT NULL,
	progress         DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_msg        TEXT NOT NULL DEFAULT '',
	retry_count      INTEGER NOT NULL DEFAULT 0,
	worker_id        TEXT NOT NULL DEFAULT '',
	frame_count      INTEGER NOT NULL DEFAULT 0,
	first_frame      INTEGER NOT NULL DEFAULT 0,
	captioned_frames INTEGER NOT NULL DEFAULT 0,
	result_count     INTEGER NOT NULL DEFAULT 0,
	results_key      TEXT NOT NULL DEFAULT '',
	video            JSONB NOT NULL DEFAULT '{}',
	started_at       TIMESTAMPTZ,
	completed_at     TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);

CREATE TABLE IF NOT EXISTS results (
	job_id      TEXT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	image       TEXT NOT NULL,
	name        TEXT NOT NULL,
	dist        TEXT NOT NULL,
	date        TEXT NOT NULL,
	label       TEXT NOT NULL,
	probability TEXT NOT NULL,
	box_left    TEXT NOT NULL,
	box_right   TEXT NOT NULL,
	box_top     TEXT NOT NULL,
	box_bottom  TEXT NOT NULL,
	PRIMARY KEY (job_id, seq)
);
`
