// Package resilience provides the two-provider fallback manager for LLM
// operations.
//
// The manager presents the same [llm.Provider] interface as the backends it
// wraps: callers cannot tell whether a result came from the primary or the
// secondary. There is deliberately no circuit breaker and no caching — every
// call re-attempts the primary first, even if it failed moments ago. Call
// volume is per-SMS and human-paced, so the extra failed request costs
// little and keeps the behavior predictable.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

// ErrAllProvidersFailed is returned when both the primary and the secondary
// provider fail. The secondary's error is wrapped alongside it so callers can
// still inspect the cause with errors.Is/As.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Fallback implements [llm.Provider] with single-attempt failover from a
// primary to a secondary backend. Safe for concurrent use when both wrapped
// providers are.
type Fallback struct {
	primary   llm.Provider
	secondary llm.Provider
}

// Compile-time interface assertion.
var _ llm.Provider = (*Fallback)(nil)

// New creates a [Fallback] that prefers primary and falls back to secondary.
func New(primary, secondary llm.Provider) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// Name implements llm.Provider. The reported name is the primary's, since
// that is the backend callers are nominally talking to.
func (f *Fallback) Name() string { return f.primary.Name() }

// GenerateWord implements llm.Provider with failover.
func (f *Fallback) GenerateWord(ctx context.Context, languageCode string) (string, error) {
	return execute(ctx, f, "generate_word", func(p llm.Provider) (string, error) {
		return p.GenerateWord(ctx, languageCode)
	})
}

// EvaluateDescription implements llm.Provider with failover.
func (f *Fallback) EvaluateDescription(ctx context.Context, word, description, languageCode string) (llm.Evaluation, error) {
	return execute(ctx, f, "evaluate_description", func(p llm.Provider) (llm.Evaluation, error) {
		return p.EvaluateDescription(ctx, word, description, languageCode)
	})
}

// execute runs fn against the primary, then the secondary on failure. The
// primary's error is logged at warn level but never propagated unless the
// secondary also fails, in which case the secondary's error is returned
// wrapped in [ErrAllProvidersFailed]. This is a package-level function
// because Go does not support method-level type parameters.
func execute[R any](ctx context.Context, f *Fallback, op string, fn func(llm.Provider) (R, error)) (R, error) {
	result, err := fn(f.primary)
	if err == nil {
		return result, nil
	}

	slog.WarnContext(ctx, "primary provider failed, trying fallback",
		"op", op, "provider", f.primary.Name(), "error", err)

	result, err = fn(f.secondary)
	if err == nil {
		return result, nil
	}

	var zero R
	return zero, fmt.Errorf("%w: %w", ErrAllProvidersFailed, err)
}
