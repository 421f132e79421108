package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// evaluationPayload is the JSON shape requested by EvaluationPrompt.
type evaluationPayload struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// ParseEvaluation decodes and validates the model's evaluation output.
// Markdown code fences are tolerated because some models wrap JSON in them
// despite instructions. Any failure wraps ErrMalformedResponse so providers
// can surface it as a *ProviderError distinct from transport errors.
func ParseEvaluation(raw string) (Evaluation, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Evaluation{}, fmt.Errorf("%w: decode evaluation json: %v", ErrMalformedResponse, err)
	}
	if payload.Score < 0 || payload.Score > 100 {
		return Evaluation{}, fmt.Errorf("%w: score %d out of range [0,100]", ErrMalformedResponse, payload.Score)
	}
	if strings.TrimSpace(payload.Feedback) == "" {
		return Evaluation{}, fmt.Errorf("%w: empty feedback", ErrMalformedResponse)
	}
	return Evaluation{Score: payload.Score, Feedback: payload.Feedback}, nil
}
