// Package memstore provides an in-memory [store.GameStore] implementation.
//
// It enforces the same semantics as the PostgreSQL store, including the
// at-most-one-active-session constraint, and supports transactional
// rollback via copy-on-write snapshots. Intended for tests and local
// development without a database.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/joshSzep/charades/internal/store"
)

// Compile-time interface assertion.
var _ store.GameStore = (*Store)(nil)

// Store is an in-memory [store.GameStore]. The zero value is not usable;
// call [New]. Safe for concurrent use.
type Store struct {
	mu sync.Mutex
	st *state
}

// state holds all data behind the store. WithTx snapshots it so a failed
// transaction can restore the previous state wholesale.
type state struct {
	nextPlayerID  int64
	nextSessionID int64
	players       map[int64]*store.Player
	byPhone       map[string]int64
	sessions      map[int64]*store.GameSession
}

func newState() *state {
	return &state{
		nextPlayerID:  1,
		nextSessionID: 1,
		players:       make(map[int64]*store.Player),
		byPhone:       make(map[string]int64),
		sessions:      make(map[int64]*store.GameSession),
	}
}

// clone deep-copies the state.
func (st *state) clone() *state {
	cp := &state{
		nextPlayerID:  st.nextPlayerID,
		nextSessionID: st.nextSessionID,
		players:       make(map[int64]*store.Player, len(st.players)),
		byPhone:       maps.Clone(st.byPhone),
		sessions:      make(map[int64]*store.GameSession, len(st.sessions)),
	}
	for id, p := range st.players {
		pc := *p
		cp.players[id] = &pc
	}
	for id, s := range st.sessions {
		sc := *s
		cp.sessions[id] = &sc
	}
	return cp
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{st: newState()}
}

// GetOrCreatePlayer implements [store.GameStore].
func (s *Store) GetOrCreatePlayer(_ context.Context, phoneNumber string) (store.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.st.byPhone[phoneNumber]; ok {
		return *s.st.players[id], false, nil
	}

	p := &store.Player{
		ID:          s.st.nextPlayerID,
		PhoneNumber: phoneNumber,
		CreatedAt:   time.Now(),
	}
	s.st.nextPlayerID++
	s.st.players[p.ID] = p
	s.st.byPhone[phoneNumber] = p.ID
	return *p, true, nil
}

// OptIn implements [store.GameStore].
func (s *Store) OptIn(_ context.Context, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.st.players[playerID]
	if !ok {
		return fmt.Errorf("memstore: opt in player %d: %w", playerID, store.ErrNotFound)
	}
	now := time.Now()
	p.Active = true
	p.OptedInAt = &now
	p.OptedOutAt = nil
	return nil
}

// OptOut implements [store.GameStore].
func (s *Store) OptOut(_ context.Context, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.st.players[playerID]
	if !ok {
		return fmt.Errorf("memstore: opt out player %d: %w", playerID, store.ErrNotFound)
	}
	now := time.Now()
	p.Active = false
	p.OptedOutAt = &now
	return nil
}

// EndActiveSessions implements [store.GameStore].
func (s *Store) EndActiveSessions(_ context.Context, playerID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now()
	for _, sess := range s.st.sessions {
		if sess.PlayerID == playerID && sess.Status == store.StatusActive {
			sess.Status = store.StatusTimeout
			sess.CompletedAt = &now
			n++
		}
	}
	return n, nil
}

// CreateSession implements [store.GameStore]. Like the database's partial
// unique index, it rejects a second active session for the same player.
func (s *Store) CreateSession(_ context.Context, playerID int64, word, language string) (store.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.players[playerID]; !ok {
		return store.GameSession{}, fmt.Errorf("memstore: create session for player %d: %w", playerID, store.ErrNotFound)
	}
	for _, sess := range s.st.sessions {
		if sess.PlayerID == playerID && sess.Status == store.StatusActive {
			return store.GameSession{}, fmt.Errorf("memstore: create session: player %d already has an active session", playerID)
		}
	}

	sess := &store.GameSession{
		ID:        s.st.nextSessionID,
		PlayerID:  playerID,
		Word:      word,
		Language:  strings.ToLower(language),
		Status:    store.StatusActive,
		StartedAt: time.Now(),
	}
	s.st.nextSessionID++
	s.st.sessions[sess.ID] = sess
	return *sess, nil
}

// ActiveSession implements [store.GameStore].
func (s *Store) ActiveSession(_ context.Context, playerID int64) (*store.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *store.GameSession
	for _, sess := range s.st.sessions {
		if sess.PlayerID != playerID || sess.Status != store.StatusActive {
			continue
		}
		if latest == nil || sess.StartedAt.After(latest.StartedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// CompleteSession implements [store.GameStore].
func (s *Store) CompleteSession(_ context.Context, sessionID int64, score int, description, feedback string) (store.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.st.sessions[sessionID]
	if !ok {
		return store.GameSession{}, fmt.Errorf("memstore: complete session %d: %w", sessionID, store.ErrNotFound)
	}
	if sess.Status != store.StatusActive {
		return store.GameSession{}, fmt.Errorf("memstore: complete session %d: %w", sessionID, store.ErrSessionNotActive)
	}

	now := time.Now()
	sess.Status = store.StatusCompleted
	sess.CompletedAt = &now
	sess.Score = &score
	sess.Description = &description
	sess.Feedback = &feedback
	return *sess, nil
}

// WithTx implements [store.GameStore] with snapshot rollback: when fn
// returns an error, the store is restored to the state it had on entry.
func (s *Store) WithTx(_ context.Context, fn func(store.GameStore) error) error {
	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// FailNext wraps s so the next call to the named method fails with err.
// Useful for exercising error paths in orchestrator tests.
type FailNext struct {
	store.GameStore

	Method string
	Err    error

	mu    sync.Mutex
	fired bool
}

func (f *FailNext) fail(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fired || method != f.Method {
		return nil
	}
	f.fired = true
	return f.Err
}

func (f *FailNext) CreateSession(ctx context.Context, playerID int64, word, language string) (store.GameSession, error) {
	if err := f.fail("CreateSession"); err != nil {
		return store.GameSession{}, err
	}
	return f.GameStore.CreateSession(ctx, playerID, word, language)
}

func (f *FailNext) CompleteSession(ctx context.Context, sessionID int64, score int, description, feedback string) (store.GameSession, error) {
	if err := f.fail("CompleteSession"); err != nil {
		return store.GameSession{}, err
	}
	return f.GameStore.CompleteSession(ctx, sessionID, score, description, feedback)
}

// WithTx keeps the failure injection in effect inside the transaction.
func (f *FailNext) WithTx(ctx context.Context, fn func(store.GameStore) error) error {
	return f.GameStore.WithTx(ctx, func(store.GameStore) error {
		return fn(f)
	})
}

var _ store.GameStore = (*FailNext)(nil)

// ErrInjected is a convenience sentinel for [FailNext] users.
var ErrInjected = errors.New("injected failure")
