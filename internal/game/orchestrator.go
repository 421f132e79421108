// Package game implements the charades game loop: opt-in and opt-out
// commands, language selection, word delivery, and description scoring.
//
// The [Orchestrator] is the single entry point for player messages. It
// derives the player's state from the store (opted out, idle, or playing)
// and routes the message accordingly, so the same logic serves both the
// SMS and the voice webhook.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/joshSzep/charades/internal/observe"
	"github.com/joshSzep/charades/internal/store"
	"github.com/joshSzep/charades/pkg/provider/llm"
)

// defaultProviderTimeout bounds a single LLM round-trip. Twilio waits at
// most 15 seconds for a webhook reply, but the fallback chain may need two
// attempts, so the per-call budget stays generous and the HTTP server's
// write timeout is the hard stop.
const defaultProviderTimeout = 30 * time.Second

// Orchestrator routes player messages through the game state machine.
type Orchestrator struct {
	store   store.GameStore
	llm     llm.Provider
	metrics *observe.Metrics
	timeout time.Duration

	// mu guards langs, which the config watcher may swap at runtime.
	mu    sync.RWMutex
	langs llm.Languages
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithProviderTimeout overrides the per-call LLM timeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New creates an Orchestrator backed by the given store and LLM provider.
// langs maps upper-case ISO 639-1 codes to display names and defines which
// languages players can select.
func New(st store.GameStore, provider llm.Provider, langs llm.Languages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   st,
		llm:     provider,
		langs:   langs,
		timeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Languages returns the supported language map.
func (o *Orchestrator) Languages() llm.Languages {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.langs
}

// SetLanguages replaces the supported language map. Games already in
// flight keep the language they started with.
func (o *Orchestrator) SetLanguages(langs llm.Languages) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.langs = langs
}

// HandleMessage processes one inbound message from phoneNumber and returns
// the reply text. A non-nil error means the message could not be processed
// and the caller should respond with a generic error.
//
// The routing order is fixed: the opt-in and opt-out commands always win,
// then an active game session claims the message as a description, then a
// two-letter code starts a new game.
func (o *Orchestrator) HandleMessage(ctx context.Context, phoneNumber, body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	command := strings.ToLower(trimmed)
	log := observe.Logger(ctx).With("phone_number", phoneNumber)

	player, created, err := o.store.GetOrCreatePlayer(ctx, phoneNumber)
	if err != nil {
		return "", fmt.Errorf("get or create player: %w", err)
	}
	if created {
		log.InfoContext(ctx, "new player registered", "player_id", player.ID)
	}

	switch command {
	case "langgang":
		return o.optIn(ctx, player)
	case "optout", "stop":
		return o.optOut(ctx, player)
	}

	if !player.Active {
		return Message(MsgNotOptedIn), nil
	}

	session, err := o.store.ActiveSession(ctx, player.ID)
	if err != nil {
		return "", fmt.Errorf("look up active session: %w", err)
	}
	if session != nil {
		return o.evaluateDescription(ctx, player, trimmed)
	}

	// Only a supported code starts a game; any other text, including a
	// two-letter string that is not a known code, gets the guidance reply.
	if isLanguageCode(command) && o.Languages().Supported(command) {
		return o.startGame(ctx, player, command)
	}

	return Message(MsgHowToPlay), nil
}

// optIn activates the player. Opting in twice is harmless and tells the
// player they are already in.
func (o *Orchestrator) optIn(ctx context.Context, player store.Player) (string, error) {
	if player.Active {
		return Message(MsgAlreadyOptedIn), nil
	}
	if err := o.store.OptIn(ctx, player.ID); err != nil {
		return "", fmt.Errorf("opt in: %w", err)
	}
	o.metrics.OptIns.Add(ctx, 1)
	observe.Logger(ctx).InfoContext(ctx, "player opted in", "player_id", player.ID)
	return Message(MsgOptInSuccess), nil
}

// optOut deactivates the player and times out any game in flight, so an
// opt-out mid-game never leaves a dangling active session. It runs
// unconditionally: opting out while already out just re-stamps OptedOutAt
// and replies with the same confirmation.
func (o *Orchestrator) optOut(ctx context.Context, player store.Player) (string, error) {
	err := o.store.WithTx(ctx, func(tx store.GameStore) error {
		ended, err := tx.EndActiveSessions(ctx, player.ID)
		if err != nil {
			return err
		}
		if ended > 0 {
			observe.Logger(ctx).InfoContext(ctx, "ended sessions on opt-out",
				"player_id", player.ID, "count", ended)
		}
		return tx.OptOut(ctx, player.ID)
	})
	if err != nil {
		return "", fmt.Errorf("opt out: %w", err)
	}
	o.metrics.OptOuts.Add(ctx, 1)
	observe.Logger(ctx).InfoContext(ctx, "player opted out", "player_id", player.ID)
	return Message(MsgOptOutSuccess), nil
}

// startGame generates a word in the selected language and opens a session.
// The whole exchange runs in one transaction so a provider failure leaves
// no half-started game behind.
func (o *Orchestrator) startGame(ctx context.Context, player store.Player, code string) (string, error) {
	var word string
	err := o.store.WithTx(ctx, func(tx store.GameStore) error {
		if _, err := tx.EndActiveSessions(ctx, player.ID); err != nil {
			return err
		}
		var err error
		word, err = o.generateWord(ctx, code)
		if err != nil {
			return err
		}
		_, err = tx.CreateSession(ctx, player.ID, word, code)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("start game: %w", err)
	}

	o.metrics.RecordGameStarted(ctx, code)
	observe.Logger(ctx).InfoContext(ctx, "game started",
		"player_id", player.ID, "language", code)
	return Message(MsgNewGame, "language", o.Languages().Name(code), "word", word), nil
}

// evaluateDescription scores the player's description of the active word
// and completes the session.
func (o *Orchestrator) evaluateDescription(ctx context.Context, player store.Player, description string) (string, error) {
	var (
		eval llm.Evaluation
		lang string
	)
	err := o.store.WithTx(ctx, func(tx store.GameStore) error {
		session, err := tx.ActiveSession(ctx, player.ID)
		if err != nil {
			return err
		}
		if session == nil {
			// The session ended between routing and the transaction.
			return store.ErrSessionNotActive
		}
		lang = session.Language

		eval, err = o.evaluate(ctx, session.Word, description, session.Language)
		if err != nil {
			return err
		}

		_, err = tx.CompleteSession(ctx, session.ID, eval.Score, description, eval.Feedback)
		return err
	})
	if errors.Is(err, store.ErrSessionNotActive) {
		return Message(MsgNoActiveGame), nil
	}
	if err != nil {
		return "", fmt.Errorf("evaluate description: %w", err)
	}

	o.metrics.RecordGameCompleted(ctx, lang, eval.Score)
	observe.Logger(ctx).InfoContext(ctx, "game completed",
		"player_id", player.ID, "language", lang, "score", eval.Score)
	return Message(MsgGameComplete,
		"score", fmt.Sprintf("%d", eval.Score),
		"feedback", eval.Feedback,
	), nil
}

// generateWord calls the provider chain with the per-call timeout and
// records request metrics.
func (o *Orchestrator) generateWord(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	word, err := o.llm.GenerateWord(ctx, code)
	o.recordLLMCall(ctx, "generate_word", time.Since(start), err)
	return word, err
}

// evaluate calls the provider chain with the per-call timeout and records
// request metrics.
func (o *Orchestrator) evaluate(ctx context.Context, word, description, code string) (llm.Evaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	eval, err := o.llm.EvaluateDescription(ctx, word, description, code)
	o.recordLLMCall(ctx, "evaluate_description", time.Since(start), err)
	return eval, err
}

func (o *Orchestrator) recordLLMCall(ctx context.Context, op string, elapsed time.Duration, err error) {
	provider := o.llm.Name()
	status := "ok"
	if err != nil {
		status = "error"
		// Attribute the error to the provider that produced it when known.
		var perr *llm.ProviderError
		if errors.As(err, &perr) {
			provider = perr.Provider
		}
		o.metrics.RecordProviderError(ctx, provider, op)
	}
	o.metrics.LLMDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(observe.Attr("provider", provider), observe.Attr("op", op)),
	)
	o.metrics.RecordProviderRequest(ctx, provider, op, status)
}

// isLanguageCode reports whether s looks like a two-letter ISO 639-1 code.
func isLanguageCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
