// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"eventhub/internal/config"
)

// DSN builds a libpq-compatible connection string from the database section
// of the config.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode,
	)
}

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				return pool, nil
			} else {
				err = pingErr
			}
			pool.Close()
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("db connect failed, retrying in 2s")
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// Migrate creates the schema when it does not yet exist. Statements are
// idempotent so the service can start against a fresh or existing database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id               UUID PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			starts_at        TIMESTAMPTZ NOT NULL,
			ends_at          TIMESTAMPTZ NOT NULL,
			location_name    TEXT NOT NULL DEFAULT '',
			location_address TEXT NOT NULL DEFAULT '',
			lat              DOUBLE PRECISION,
			lng              DOUBLE PRECISION,
			category         TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'draft',
			max_participants INTEGER,
			organizer_id     UUID NOT NULL REFERENCES users(id),
			tags             TEXT[] NOT NULL DEFAULT '{}',
			image_url        TEXT NOT NULL DEFAULT '',
			is_public        BOOLEAN NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_participants (
			event_id  UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_id   UUID NOT NULL REFERENCES users(id),
			joined_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (event_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status_starts ON events (status, starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_category ON events (category)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
