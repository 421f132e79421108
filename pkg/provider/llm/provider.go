// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a hosted model API (e.g., OpenAI GPT-4 or Anthropic
// Claude) and exposes the two operations the charades game needs: generating
// a word for a player to describe, and scoring the player's description. The
// game orchestrator never couples to a specific SDK; it talks to a Provider,
// usually through the resilience fallback manager.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Evaluation is the scored result of a player's word description.
type Evaluation struct {
	// Score is the 0-100 grade assigned by the model: 40% descriptive
	// accuracy, 30% grammar, 30% vocabulary (see EvaluationPrompt).
	Score int

	// Feedback is an encouraging message in the target language with an
	// English translation in parentheses.
	Feedback string
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// Each method should return as quickly as possible when ctx is cancelled.
type Provider interface {
	// GenerateWord returns one common noun in the language identified by the
	// two-letter ISO 639-1 code. For non-Latin scripts the word includes a
	// romanization in parentheses, e.g. "사과 (sagwa)".
	//
	// Failures are reported as a *ProviderError: network/auth/timeout
	// problems wrap the transport error, while empty or unusable model
	// output wraps ErrMalformedResponse.
	GenerateWord(ctx context.Context, languageCode string) (string, error)

	// EvaluateDescription scores description against word in the given
	// language. The model is asked for a strict JSON object; output that
	// cannot be parsed or validated is a *ProviderError wrapping
	// ErrMalformedResponse, distinct from transport failures, so callers can
	// tell "provider unreachable" from "provider returned garbage".
	EvaluateDescription(ctx context.Context, word, description, languageCode string) (Evaluation, error)

	// Name identifies the backend (e.g. "openai", "anthropic") for logging
	// and metrics.
	Name() string
}

// ErrMalformedResponse marks provider output that arrived but could not be
// used: unparseable JSON, an out-of-range score, or empty content. It is
// always wrapped in a *ProviderError.
var ErrMalformedResponse = errors.New("malformed provider response")

// ProviderError is the uniform failure type for all Provider operations.
// Check the cause with errors.Is: a wrapped ErrMalformedResponse means the
// provider answered with garbage; anything else means it was unreachable,
// timed out, or rejected the request.
type ProviderError struct {
	// Provider is the backend name, as returned by Provider.Name.
	Provider string

	// Op is the failing operation: "generate_word" or "evaluate_description".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Languages maps upper-case two-letter ISO 639-1 codes to display names,
// e.g. "EN" → "English". It doubles as the supported-language set: a code
// absent from the map is not playable.
type Languages map[string]string

// Name returns the display name for code (case-insensitive), or "" when the
// language is not supported.
func (l Languages) Name(code string) string {
	return l[strings.ToUpper(code)]
}

// Supported reports whether code (case-insensitive) is a playable language.
func (l Languages) Supported(code string) bool {
	_, ok := l[strings.ToUpper(code)]
	return ok
}
