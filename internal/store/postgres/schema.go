// Package postgres provides the PostgreSQL-backed [store.GameStore].
//
// All operations share a single [pgxpool.Pool]. [Migrate] creates the two
// tables on startup; there is no separate migration tool.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
//
//	player, created, _ := st.GetOrCreatePlayer(ctx, "+12065550001")
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlPlayers = `
CREATE TABLE IF NOT EXISTS players (
    id           BIGSERIAL    PRIMARY KEY,
    phone_number TEXT         NOT NULL UNIQUE,
    is_active    BOOLEAN      NOT NULL DEFAULT FALSE,
    opted_in_at  TIMESTAMPTZ,
    opted_out_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);`

const ddlGameSessions = `
CREATE TABLE IF NOT EXISTS game_sessions (
    id           BIGSERIAL    PRIMARY KEY,
    player_id    BIGINT       NOT NULL REFERENCES players (id) ON DELETE CASCADE,
    word         TEXT         NOT NULL,
    language     TEXT         NOT NULL,
    status       TEXT         NOT NULL DEFAULT 'active',
    started_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ,
    score        INTEGER      CHECK (score >= 0 AND score <= 100),
    description  TEXT,
    feedback     TEXT
);

CREATE INDEX IF NOT EXISTS idx_game_sessions_player_id
    ON game_sessions (player_id);

-- At most one active session per player. The orchestrator ends active
-- sessions before inserting a new one in the same transaction, so this
-- index only fires when duplicate webhooks race each other.
CREATE UNIQUE INDEX IF NOT EXISTS uq_game_sessions_one_active
    ON game_sessions (player_id)
    WHERE status = 'active';`

// Migrate creates all required tables and indexes. Statements are idempotent
// (IF NOT EXISTS) so it is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlPlayers, ddlGameSessions} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("postgres store: migrate: %w", err)
		}
	}
	return nil
}
