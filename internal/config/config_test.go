package config_test

import (
	"testing"

	"github.com/joshSzep/charades/internal/config"
)

func TestLogLevelIsValid(t *testing.T) {
	t.Parallel()
	valid := []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError}
	for _, l := range valid {
		if !l.IsValid() {
			t.Errorf("LogLevel(%q).IsValid() = false, want true", l)
		}
	}
	invalid := []config.LogLevel{"", "trace", "DEBUG", "quiet"}
	for _, l := range invalid {
		if l.IsValid() {
			t.Errorf("LogLevel(%q).IsValid() = true, want false", l)
		}
	}
}

func TestDefaultLanguages(t *testing.T) {
	t.Parallel()
	langs := config.DefaultLanguages()
	if langs["EN"] != "English" {
		t.Errorf(`DefaultLanguages()["EN"] = %q, want English`, langs["EN"])
	}
	if langs["KO"] != "Korean" {
		t.Errorf(`DefaultLanguages()["KO"] = %q, want Korean`, langs["KO"])
	}

	// Callers may mutate the returned map; a shared instance would leak
	// changes between them.
	langs["XX"] = "Test"
	if _, ok := config.DefaultLanguages()["XX"]; ok {
		t.Error("DefaultLanguages() returns a shared map")
	}
}

func TestRegistryCreateLLM(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	if _, err := r.CreateLLM(config.ProviderEntry{Name: "openai"}); err == nil {
		t.Fatal("CreateLLM() on empty registry error = nil, want ErrProviderNotRegistered")
	}
}
