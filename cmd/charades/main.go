// Command charades runs the LangGang Charades server: Twilio webhooks in,
// LLM-scored word-guessing games out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/joshSzep/charades/internal/app"
	"github.com/joshSzep/charades/internal/config"
	"github.com/joshSzep/charades/internal/observe"
	"github.com/joshSzep/charades/internal/resilience"
	"github.com/joshSzep/charades/pkg/provider/llm"
	"github.com/joshSzep/charades/pkg/provider/llm/anyllm"
	"github.com/joshSzep/charades/pkg/provider/llm/openai"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// shutdownTimeout bounds the graceful teardown after the run loop exits.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("charades %s\n", version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "charades: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "charades: load config: %v\n", err)
		}
		return 1
	}

	level := &slog.LevelVar{}
	level.Set(cfg.Server.LogLevel.SlogLevel())
	slog.SetDefault(newLogger(level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "charades",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("init telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	langs := llm.Languages(cfg.Languages)
	registry := config.NewRegistry()
	registerBuiltinProviders(registry, langs)

	provider, err := buildProvider(registry, cfg)
	if err != nil {
		slog.Error("build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, provider,
		app.WithLogLevelVar(level),
		app.WithConfigWatch(*configPath),
	)
	if err != nil {
		slog.Error("initialise application", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run failed", "err", runErr)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(stopCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
		return 1
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	return 0
}

// newLogger builds the process-wide text logger. The level var stays
// adjustable so config reloads can change verbosity at runtime.
func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// registerBuiltinProviders fills the registry with every supported LLM
// backend. The native OpenAI client backs the "openai" slot; everything else
// goes through any-llm-go.
func registerBuiltinProviders(registry *config.Registry, langs llm.Languages) {
	registry.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(time.Duration(entry.Timeout)*time.Second))
		}
		return openai.New(entry.APIKey, entry.Model, langs, opts...)
	})

	for _, name := range []string{"anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"} {
		registry.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(entry.Name, entry.Model, langs, opts...)
		})
	}
}

// buildProvider constructs the configured provider chain: the primary alone,
// or the primary wrapped with single-attempt failover to the fallback.
func buildProvider(registry *config.Registry, cfg *config.Config) (llm.Provider, error) {
	primary, err := registry.CreateLLM(cfg.Providers.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary provider %q: %w", cfg.Providers.Primary.Name, err)
	}

	if cfg.Providers.Fallback.Name == "" {
		slog.Warn("no fallback provider configured, provider failures will reach players")
		return primary, nil
	}

	secondary, err := registry.CreateLLM(cfg.Providers.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback provider %q: %w", cfg.Providers.Fallback.Name, err)
	}

	return resilience.New(primary, secondary), nil
}

// printStartupSummary writes a human-readable configuration overview to
// stdout before the server starts taking webhooks.
func printStartupSummary(cfg *config.Config) {
	fmt.Println("┌─────────────────────────────────────────────")
	fmt.Printf("│ charades %s\n", version)
	fmt.Println("├─────────────────────────────────────────────")
	fmt.Printf("│ listen addr : %s\n", cfg.Server.ListenAddr)
	fmt.Printf("│ public url  : %s\n", optString(cfg.Server.PublicURL, "(not set)"))
	fmt.Printf("│ log level   : %s\n", cfg.Server.LogLevel)
	fmt.Printf("│ primary     : %s/%s\n", cfg.Providers.Primary.Name, cfg.Providers.Primary.Model)
	if cfg.Providers.Fallback.Name != "" {
		fmt.Printf("│ fallback    : %s/%s\n", cfg.Providers.Fallback.Name, cfg.Providers.Fallback.Model)
	} else {
		fmt.Println("│ fallback    : (none)")
	}

	codes := make([]string, 0, len(cfg.Languages))
	for code := range cfg.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("│ language    : %s (%s)\n", code, cfg.Languages[code])
	}
	fmt.Println("└─────────────────────────────────────────────")
}

// optString returns s, or fallback when s is empty.
func optString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
