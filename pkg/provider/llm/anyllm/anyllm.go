// Package anyllm provides an LLM provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// The charades deployment uses it for the secondary (fallback) slot —
// Anthropic by default, matching the production configuration — but any
// supported backend can be selected by name.
//
// Usage:
//
//	p, err := anyllm.New("anthropic", "claude-3-haiku-20240307", langs, anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

// wordMaxTokens caps word generation output.
const wordMaxTokens = 10

// evalMaxTokens bounds the evaluation JSON; feedback in two languages fits
// comfortably.
const evalMaxTokens = 1000

// wordTemperature matches the primary provider's word-selection randomness.
const wordTemperature = 0.7

// Provider implements llm.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
	name    string
	model   string
	langs   llm.Languages
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// New creates a new Provider backed by the given LLM backend name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq". model is the specific model to use (e.g.,
// "claude-3-haiku-20240307"). langs resolves language codes to the display
// names used in prompts.
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the backend falls
// back to its environment variable (ANTHROPIC_API_KEY, OPENAI_API_KEY, …).
func New(providerName string, model string, langs llm.Languages, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{
		backend: backend,
		name:    strings.ToLower(providerName),
		model:   model,
		langs:   langs,
	}, nil
}

// NewAnthropic creates a Provider backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, langs llm.Languages, opts ...anyllmlib.Option) (*Provider, error) {
	return New("anthropic", model, langs, opts...)
}

// NewOpenAI creates a Provider backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, langs llm.Languages, opts ...anyllmlib.Option) (*Provider, error) {
	return New("openai", model, langs, opts...)
}

// createBackend creates the underlying any-llm-go provider for the given backend name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq", providerName)
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return p.name }

// GenerateWord implements llm.Provider.
func (p *Provider) GenerateWord(ctx context.Context, languageCode string) (string, error) {
	prompt := llm.WordPrompt(p.languageName(languageCode))

	word, err := p.complete(ctx, []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: prompt},
	}, wordMaxTokens, wordTemperature)
	if err != nil {
		return "", &llm.ProviderError{Provider: p.name, Op: "generate_word", Err: err}
	}
	return word, nil
}

// EvaluateDescription implements llm.Provider.
func (p *Provider) EvaluateDescription(ctx context.Context, word, description, languageCode string) (llm.Evaluation, error) {
	prompt := llm.EvaluationPrompt(word, p.languageName(languageCode))

	raw, err := p.complete(ctx, []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: prompt},
		{Role: anyllmlib.RoleUser, Content: description},
	}, evalMaxTokens, 0)
	if err != nil {
		return llm.Evaluation{}, &llm.ProviderError{Provider: p.name, Op: "evaluate_description", Err: err}
	}

	eval, err := llm.ParseEvaluation(raw)
	if err != nil {
		return llm.Evaluation{}, &llm.ProviderError{Provider: p.name, Op: "evaluate_description", Err: err}
	}
	return eval, nil
}

// complete sends a single non-streaming completion and returns the trimmed
// text of the first choice.
func (p *Provider) complete(ctx context.Context, messages []anyllmlib.Message, maxTokens int, temperature float64) (string, error) {
	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
	if maxTokens > 0 {
		mt := maxTokens
		params.MaxTokens = &mt
	}
	if temperature != 0 {
		t := temperature
		params.Temperature = &t
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", llm.ErrMalformedResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if text == "" {
		return "", fmt.Errorf("%w: empty message content", llm.ErrMalformedResponse)
	}
	return text, nil
}

// languageName resolves a code to its display name, falling back to the code
// itself so a misconfigured language set still produces a usable prompt.
func (p *Provider) languageName(code string) string {
	if name := p.langs.Name(code); name != "" {
		return name
	}
	return code
}
