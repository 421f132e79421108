package config_test

import (
	"strings"
	"testing"

	"github.com/joshSzep/charades/internal/config"
)

const validYAML = `
server:
  listen_addr: ":9000"
  log_level: debug
database:
  dsn: "postgres://localhost/charades"
providers:
  primary:
    name: openai
    model: gpt-4o-mini
    api_key: sk-test
  fallback:
    name: anthropic
    model: claude-3-5-haiku-latest
    api_key: sk-ant-test
languages:
  en: English
  ko: Korean
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q, want :9000", cfg.Server.ListenAddr)
	}
	if cfg.Providers.Primary.Name != "openai" {
		t.Errorf("primary provider = %q, want openai", cfg.Providers.Primary.Name)
	}
	if cfg.Languages["KO"] != "Korean" {
		t.Errorf("languages[KO] = %q, want Korean (keys normalised to upper case)", cfg.Languages["KO"])
	}
}

func TestLoadFromReader_DefaultsApply(t *testing.T) {
	t.Parallel()
	yaml := `
database:
  dsn: "postgres://localhost/charades"
providers:
  primary:
    name: openai
    model: gpt-4o-mini
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want default :8080", cfg.Server.ListenAddr)
	}
	if cfg.Languages["EN"] != "English" || cfg.Languages["KO"] != "Korean" {
		t.Errorf("languages = %v, want default English/Korean set", cfg.Languages)
	}
}

func TestLoadFromReader_ExpandsEnvInSecrets(t *testing.T) {
	t.Setenv("CHARADES_TEST_API_KEY", "sk-from-env")
	yaml := `
database:
  dsn: "postgres://localhost/charades"
providers:
  primary:
    name: openai
    model: gpt-4o-mini
    api_key: ${CHARADES_TEST_API_KEY}
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.Primary.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, want value from environment", cfg.Providers.Primary.APIKey)
	}
}

func TestValidate_PrimaryProviderRequired(t *testing.T) {
	t.Parallel()
	yaml := `
database:
  dsn: "postgres://localhost/charades"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing primary provider, got nil")
	}
	if !strings.Contains(err.Error(), "providers.primary.name") {
		t.Errorf("error should mention providers.primary.name, got: %v", err)
	}
}

func TestValidate_DSNRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  primary:
    name: openai
    model: gpt-4o-mini
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing DSN, got nil")
	}
	if !strings.Contains(err.Error(), "database.dsn") {
		t.Errorf("error should mention database.dsn, got: %v", err)
	}
}

func TestValidate_BadLanguageCode(t *testing.T) {
	t.Parallel()
	yaml := `
database:
  dsn: "postgres://localhost/charades"
providers:
  primary:
    name: openai
    model: gpt-4o-mini
languages:
  kor: Korean
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for three-letter language code, got nil")
	}
	if !strings.Contains(err.Error(), "ISO 639-1") {
		t.Errorf("error should mention ISO 639-1, got: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
database:
  dsn: "postgres://localhost/charades"
providers:
  primary:
    name: openai
    model: gpt-4o-mini
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for bad log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
database:
  dsn: "postgres://localhost/charades"
providers:
  primary:
    name: openai
    model: gpt-4o-mini
surprise: true
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	found := false
	for _, n := range config.ValidProviderNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames should contain \"openai\"")
	}
}
