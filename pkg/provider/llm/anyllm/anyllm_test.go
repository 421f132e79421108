package anyllm

import (
	"testing"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	langs := llm.Languages{"EN": "English"}

	if _, err := New("", "claude-3-haiku-20240307", langs); err == nil {
		t.Error("expected error for empty provider name")
	}
	if _, err := New("anthropic", "", langs); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("notreal", "some-model", langs); err == nil {
		t.Error("expected error for unsupported provider name")
	}
}

func TestName_IsLowercasedBackend(t *testing.T) {
	p, err := New("Anthropic", "claude-3-haiku-20240307", llm.Languages{"EN": "English"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("Name() = %q, want anthropic", p.Name())
	}
}
