package openai

import (
	"testing"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	langs := llm.Languages{"EN": "English"}

	if _, err := New("", "gpt-4", langs); err == nil {
		t.Error("expected error for empty api key")
	}
	if _, err := New("sk-test", "", langs); err == nil {
		t.Error("expected error for empty model")
	}
	p, err := New("sk-test", "gpt-4", langs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
}

func TestLanguageName_FallsBackToCode(t *testing.T) {
	p, err := New("sk-test", "gpt-4", llm.Languages{"KO": "Korean"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.languageName("ko"); got != "Korean" {
		t.Errorf("languageName(ko) = %q, want Korean", got)
	}
	if got := p.languageName("xx"); got != "xx" {
		t.Errorf("languageName(xx) = %q, want xx", got)
	}
}
