// Package openai provides an LLM provider backed by the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

// providerName is the value reported by Provider.Name.
const providerName = "openai"

// wordMaxTokens caps word generation output; a single noun plus romanization
// never needs more.
const wordMaxTokens = 10

// wordTemperature adds some randomness to word selection but not so much
// that the model drifts into rare vocabulary.
const wordTemperature = 0.7

// Provider implements llm.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	langs  llm.Languages
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI LLM Provider. langs resolves language codes to
// the display names used in prompts.
func New(apiKey string, model string, langs llm.Languages, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, langs: langs}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return providerName }

// GenerateWord implements llm.Provider.
func (p *Provider) GenerateWord(ctx context.Context, languageCode string) (string, error) {
	prompt := llm.WordPrompt(p.languageName(languageCode))

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(prompt),
		},
		MaxCompletionTokens: param.NewOpt(int64(wordMaxTokens)),
		Temperature:         param.NewOpt(wordTemperature),
	})
	if err != nil {
		return "", &llm.ProviderError{Provider: providerName, Op: "generate_word", Err: err}
	}

	word, err := firstChoiceText(resp)
	if err != nil {
		return "", &llm.ProviderError{Provider: providerName, Op: "generate_word", Err: err}
	}
	return word, nil
}

// EvaluateDescription implements llm.Provider.
func (p *Provider) EvaluateDescription(ctx context.Context, word, description, languageCode string) (llm.Evaluation, error) {
	prompt := llm.EvaluationPrompt(word, p.languageName(languageCode))

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(prompt),
			oai.UserMessage(description),
		},
	})
	if err != nil {
		return llm.Evaluation{}, &llm.ProviderError{Provider: providerName, Op: "evaluate_description", Err: err}
	}

	raw, err := firstChoiceText(resp)
	if err != nil {
		return llm.Evaluation{}, &llm.ProviderError{Provider: providerName, Op: "evaluate_description", Err: err}
	}

	eval, err := llm.ParseEvaluation(raw)
	if err != nil {
		return llm.Evaluation{}, &llm.ProviderError{Provider: providerName, Op: "evaluate_description", Err: err}
	}
	return eval, nil
}

// languageName resolves a code to its display name, falling back to the code
// itself so a misconfigured language set still produces a usable prompt.
func (p *Provider) languageName(code string) string {
	if name := p.langs.Name(code); name != "" {
		return name
	}
	return code
}

// firstChoiceText extracts the trimmed content of the first choice, treating
// an empty response as malformed output.
func firstChoiceText(resp *oai.ChatCompletion) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", llm.ErrMalformedResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty message content", llm.ErrMalformedResponse)
	}
	return text, nil
}
