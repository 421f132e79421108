// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the orchestrator requests the
// right words and evaluations and to feed controlled responses without a
// live LLM backend. All fields are safe to set before calling any method;
// mutating them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{Word: "apple", EvaluationResult: llm.Evaluation{Score: 85, Feedback: "Nice!"}}
//	word, err := p.GenerateWord(ctx, "en")
package mock

import (
	"context"
	"sync"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

// GenerateWordCall records a single invocation of GenerateWord.
type GenerateWordCall struct {
	// Ctx is the context passed to GenerateWord.
	Ctx context.Context
	// LanguageCode is the code passed to GenerateWord.
	LanguageCode string
}

// EvaluateCall records a single invocation of EvaluateDescription.
type EvaluateCall struct {
	// Ctx is the context passed to EvaluateDescription.
	Ctx context.Context
	// Word is the target word passed to EvaluateDescription.
	Word string
	// Description is the player's text passed to EvaluateDescription.
	Description string
	// LanguageCode is the code passed to EvaluateDescription.
	LanguageCode string
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject failures.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// Word is returned by GenerateWord.
	Word string

	// GenerateWordErr, if non-nil, is returned as the error from GenerateWord.
	GenerateWordErr error

	// EvaluationResult is returned by EvaluateDescription.
	EvaluationResult llm.Evaluation

	// EvaluateErr, if non-nil, is returned as the error from EvaluateDescription.
	EvaluateErr error

	// --- Call records (read after test) ---

	// GenerateWordCalls records every invocation of GenerateWord in order.
	GenerateWordCalls []GenerateWordCall

	// EvaluateCalls records every invocation of EvaluateDescription in order.
	EvaluateCalls []EvaluateCall
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Name implements llm.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// GenerateWord implements llm.Provider.
func (p *Provider) GenerateWord(ctx context.Context, languageCode string) (string, error) {
	p.mu.Lock()
	p.GenerateWordCalls = append(p.GenerateWordCalls, GenerateWordCall{Ctx: ctx, LanguageCode: languageCode})
	p.mu.Unlock()

	if p.GenerateWordErr != nil {
		return "", p.GenerateWordErr
	}
	return p.Word, nil
}

// EvaluateDescription implements llm.Provider.
func (p *Provider) EvaluateDescription(ctx context.Context, word, description, languageCode string) (llm.Evaluation, error) {
	p.mu.Lock()
	p.EvaluateCalls = append(p.EvaluateCalls, EvaluateCall{
		Ctx:          ctx,
		Word:         word,
		Description:  description,
		LanguageCode: languageCode,
	})
	p.mu.Unlock()

	if p.EvaluateErr != nil {
		return llm.Evaluation{}, p.EvaluateErr
	}
	return p.EvaluationResult, nil
}
