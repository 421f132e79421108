package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known LLM provider names. Used by [Validate] to
// warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment expansion, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in defaults and expands ${ENV_VAR} references in
// secret-bearing fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages()
	} else {
		// Language codes are case-insensitive in the file; normalise the
		// keys so lookups can rely on upper case.
		normalized := make(map[string]string, len(cfg.Languages))
		for code, name := range cfg.Languages {
			normalized[strings.ToUpper(code)] = name
		}
		cfg.Languages = normalized
	}

	cfg.Database.DSN = os.ExpandEnv(cfg.Database.DSN)
	cfg.Providers.Primary.APIKey = os.ExpandEnv(cfg.Providers.Primary.APIKey)
	cfg.Providers.Fallback.APIKey = os.ExpandEnv(cfg.Providers.Fallback.APIKey)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Providers.Primary.Name == "" {
		errs = append(errs, errors.New("providers.primary.name is required"))
	}
	if cfg.Providers.Primary.Model == "" {
		errs = append(errs, errors.New("providers.primary.model is required"))
	}
	validateProviderName("primary", cfg.Providers.Primary.Name)

	if cfg.Providers.Fallback.Name != "" {
		if cfg.Providers.Fallback.Model == "" {
			errs = append(errs, errors.New("providers.fallback.model is required when a fallback provider is configured"))
		}
		validateProviderName("fallback", cfg.Providers.Fallback.Name)
	} else {
		slog.Warn("no fallback provider configured; a primary outage will fail requests")
	}

	if cfg.Providers.Primary.Timeout < 0 {
		errs = append(errs, errors.New("providers.primary.timeout must not be negative"))
	}
	if cfg.Providers.Fallback.Timeout < 0 {
		errs = append(errs, errors.New("providers.fallback.timeout must not be negative"))
	}

	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	for code, name := range cfg.Languages {
		if len(code) != 2 {
			errs = append(errs, fmt.Errorf("languages: code %q is not a two-letter ISO 639-1 code", code))
		}
		if name == "" {
			errs = append(errs, fmt.Errorf("languages: code %q has an empty display name", code))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(role, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"role", role,
		"name", name,
		"known", ValidProviderNames,
	)
}
