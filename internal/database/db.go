package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectDB opens a pool for connStr and pings it.
func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		return nil, fmt.Errorf("no database url configured")
	}
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	code       TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	state      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS room_events (
	id         UUID PRIMARY KEY,
	room_code  TEXT NOT NULL,
	event_type TEXT NOT NULL,
	action     TEXT,
	player_id  TEXT,
	phase      TEXT NOT NULL,
	match      INT NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS room_events_room_idx ON room_events (room_code, created_at);

CREATE TABLE IF NOT EXISTS match_history (
	id         UUID PRIMARY KEY,
	room_code  TEXT NOT NULL,
	match      INT NOT NULL,
	ranking    JSONB NOT NULL,
	stats      JSONB NOT NULL,
	revolution JSONB,
	ended_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_history_room_idx ON match_history (room_code, match);
`

// EnsureSchema creates the tables used by the room store and the historian.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
