package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshSzep/charades/internal/store"
)

// Compile-time interface assertion.
var _ store.GameStore = (*Store)(nil)

// querier is the subset of pgx operations shared by *pgxpool.Pool and
// pgx.Tx, letting the same query methods run pooled or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed [store.GameStore]. Obtain one via
// [NewStore]. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool // nil on transaction-bound copies
	db   querier
}

// NewStore connects to the PostgreSQL database at dsn, verifies the
// connection, and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, db: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// WithTx implements [store.GameStore]. Nested calls on a transaction-bound
// store join the surrounding transaction rather than opening a new one.
func (s *Store) WithTx(ctx context.Context, fn func(store.GameStore) error) error {
	if s.pool == nil {
		return fn(s)
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
	if err != nil {
		return fmt.Errorf("postgres store: tx: %w", err)
	}
	return nil
}

const playerColumns = `id, phone_number, is_active, opted_in_at, opted_out_at, created_at`

// GetOrCreatePlayer implements [store.GameStore] with an idempotent
// insert-or-lookup keyed on phone number.
func (s *Store) GetOrCreatePlayer(ctx context.Context, phoneNumber string) (store.Player, bool, error) {
	const qInsert = `
		INSERT INTO players (phone_number) VALUES ($1)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING ` + playerColumns

	p, err := scanPlayer(s.db.QueryRow(ctx, qInsert, phoneNumber))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.Player{}, false, fmt.Errorf("postgres store: create player: %w", err)
	}

	// Conflict — the player already exists.
	const qSelect = `SELECT ` + playerColumns + ` FROM players WHERE phone_number = $1`
	p, err = scanPlayer(s.db.QueryRow(ctx, qSelect, phoneNumber))
	if err != nil {
		return store.Player{}, false, fmt.Errorf("postgres store: get player: %w", err)
	}
	return p, false, nil
}

// OptIn implements [store.GameStore].
func (s *Store) OptIn(ctx context.Context, playerID int64) error {
	const q = `
		UPDATE players
		SET    is_active = TRUE, opted_in_at = now(), opted_out_at = NULL
		WHERE  id = $1`

	tag, err := s.db.Exec(ctx, q, playerID)
	if err != nil {
		return fmt.Errorf("postgres store: opt in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres store: opt in player %d: %w", playerID, store.ErrNotFound)
	}
	return nil
}

// OptOut implements [store.GameStore].
func (s *Store) OptOut(ctx context.Context, playerID int64) error {
	const q = `
		UPDATE players
		SET    is_active = FALSE, opted_out_at = now()
		WHERE  id = $1`

	tag, err := s.db.Exec(ctx, q, playerID)
	if err != nil {
		return fmt.Errorf("postgres store: opt out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres store: opt out player %d: %w", playerID, store.ErrNotFound)
	}
	return nil
}

// EndActiveSessions implements [store.GameStore].
func (s *Store) EndActiveSessions(ctx context.Context, playerID int64) (int64, error) {
	const q = `
		UPDATE game_sessions
		SET    status = 'timeout', completed_at = now()
		WHERE  player_id = $1 AND status = 'active'`

	tag, err := s.db.Exec(ctx, q, playerID)
	if err != nil {
		return 0, fmt.Errorf("postgres store: end active sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

const sessionColumns = `id, player_id, word, language, status, started_at, completed_at, score, description, feedback`

// CreateSession implements [store.GameStore].
func (s *Store) CreateSession(ctx context.Context, playerID int64, word, language string) (store.GameSession, error) {
	const q = `
		INSERT INTO game_sessions (player_id, word, language)
		VALUES ($1, $2, lower($3))
		RETURNING ` + sessionColumns

	sess, err := scanSession(s.db.QueryRow(ctx, q, playerID, word, language))
	if err != nil {
		return store.GameSession{}, fmt.Errorf("postgres store: create session: %w", err)
	}
	return sess, nil
}

// ActiveSession implements [store.GameStore].
func (s *Store) ActiveSession(ctx context.Context, playerID int64) (*store.GameSession, error) {
	const q = `
		SELECT ` + sessionColumns + `
		FROM   game_sessions
		WHERE  player_id = $1 AND status = 'active'
		ORDER  BY started_at DESC
		LIMIT  1`

	sess, err := scanSession(s.db.QueryRow(ctx, q, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: active session: %w", err)
	}
	return &sess, nil
}

// CompleteSession implements [store.GameStore]. The status guard in the
// UPDATE keeps terminal sessions terminal.
func (s *Store) CompleteSession(ctx context.Context, sessionID int64, score int, description, feedback string) (store.GameSession, error) {
	const q = `
		UPDATE game_sessions
		SET    status = 'completed', completed_at = now(),
		       score = $2, description = $3, feedback = $4
		WHERE  id = $1 AND status = 'active'
		RETURNING ` + sessionColumns

	sess, err := scanSession(s.db.QueryRow(ctx, q, sessionID, score, description, feedback))
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish "missing" from "already terminal".
		var exists bool
		if checkErr := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM game_sessions WHERE id = $1)`, sessionID,
		).Scan(&exists); checkErr != nil {
			return store.GameSession{}, fmt.Errorf("postgres store: complete session: %w", checkErr)
		}
		if !exists {
			return store.GameSession{}, fmt.Errorf("postgres store: complete session %d: %w", sessionID, store.ErrNotFound)
		}
		return store.GameSession{}, fmt.Errorf("postgres store: complete session %d: %w", sessionID, store.ErrSessionNotActive)
	}
	if err != nil {
		return store.GameSession{}, fmt.Errorf("postgres store: complete session: %w", err)
	}
	return sess, nil
}

// scanPlayer scans one players row.
func scanPlayer(row pgx.Row) (store.Player, error) {
	var p store.Player
	err := row.Scan(&p.ID, &p.PhoneNumber, &p.Active, &p.OptedInAt, &p.OptedOutAt, &p.CreatedAt)
	return p, err
}

// scanSession scans one game_sessions row.
func scanSession(row pgx.Row) (store.GameSession, error) {
	var sess store.GameSession
	err := row.Scan(
		&sess.ID,
		&sess.PlayerID,
		&sess.Word,
		&sess.Language,
		&sess.Status,
		&sess.StartedAt,
		&sess.CompletedAt,
		&sess.Score,
		&sess.Description,
		&sess.Feedback,
	)
	return sess, err
}
