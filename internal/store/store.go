// Package store defines the game's relational model — players and game
// sessions — and the GameStore interface the orchestrator drives.
//
// Two implementations exist: [postgres.Store] for production and
// [memstore.Store] for unit tests. Both enforce the same lifecycle rules:
// one player row per phone number, at most one active session per player,
// and score set if and only if a session is completed.
package store

import (
	"context"
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of a [GameSession].
type SessionStatus string

const (
	// StatusActive means the player has been assigned a word and has not yet
	// submitted a description.
	StatusActive SessionStatus = "active"

	// StatusCompleted means the description was evaluated and scored.
	StatusCompleted SessionStatus = "completed"

	// StatusTimeout means the session was superseded or abandoned: the
	// player opted out or started a new game before finishing this one.
	StatusTimeout SessionStatus = "timeout"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrSessionNotActive is returned by CompleteSession when the target session
// is not in the active state. The orchestrator guards against this by only
// completing sessions it just read as active; seeing this error indicates a
// broken invariant, not a user mistake.
var ErrSessionNotActive = errors.New("session is not active")

// Player is one phone number's consent state.
type Player struct {
	ID          int64
	PhoneNumber string // E.164
	Active      bool
	OptedInAt   *time.Time
	OptedOutAt  *time.Time
	CreatedAt   time.Time
}

// GameSession is one play-through of describing a single assigned word.
// Score, Description, and Feedback are nil until the session completes.
type GameSession struct {
	ID          int64
	PlayerID    int64
	Word        string
	Language    string // lower-case ISO 639-1 code
	Status      SessionStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Score       *int
	Description *string
	Feedback    *string
}

// GameStore is the persistence boundary for the game orchestrator.
//
// All methods take a context for cancellation. Implementations must be safe
// for concurrent use.
type GameStore interface {
	// GetOrCreatePlayer looks up the player for phoneNumber, inserting a new
	// inactive record when none exists. The bool reports whether a record
	// was created by this call.
	GetOrCreatePlayer(ctx context.Context, phoneNumber string) (Player, bool, error)

	// OptIn activates the player: sets Active, stamps OptedInAt with the
	// current time, and clears OptedOutAt. Idempotent — calling it twice is
	// safe and refreshes OptedInAt.
	OptIn(ctx context.Context, playerID int64) error

	// OptOut deactivates the player and stamps OptedOutAt. It does not end
	// sessions; the orchestrator calls EndActiveSessions alongside it inside
	// the same transaction.
	OptOut(ctx context.Context, playerID int64) error

	// EndActiveSessions transitions all of the player's active sessions to
	// timeout, stamping CompletedAt. Returns the number of sessions ended;
	// a no-op (zero) when none are active.
	EndActiveSessions(ctx context.Context, playerID int64) (int64, error)

	// CreateSession inserts a new active session for playerID with the
	// assigned word and lower-cased language code.
	CreateSession(ctx context.Context, playerID int64, word, language string) (GameSession, error)

	// ActiveSession returns the player's current active session, or nil when
	// the player has none.
	ActiveSession(ctx context.Context, playerID int64) (*GameSession, error)

	// CompleteSession transitions an active session to completed, stamping
	// CompletedAt and recording score, the player's description, and the
	// model's feedback. Returns ErrSessionNotActive when the session is in a
	// terminal state — terminal sessions are never reopened.
	CompleteSession(ctx context.Context, sessionID int64, score int, description, feedback string) (GameSession, error)

	// WithTx runs fn against a store bound to a single transaction. If fn
	// returns an error the transaction rolls back and no writes survive;
	// otherwise it commits. The orchestrator wraps each inbound command in
	// one WithTx call so a mid-handler failure leaves records unchanged.
	WithTx(ctx context.Context, fn func(GameStore) error) error
}
