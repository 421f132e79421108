// Package app wires all charades subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithGameStore, WithMetrics, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joshSzep/charades/internal/config"
	"github.com/joshSzep/charades/internal/game"
	"github.com/joshSzep/charades/internal/health"
	"github.com/joshSzep/charades/internal/observe"
	"github.com/joshSzep/charades/internal/store"
	"github.com/joshSzep/charades/internal/store/postgres"
	"github.com/joshSzep/charades/internal/webhook"
	"github.com/joshSzep/charades/pkg/provider/llm"
)

// drainTimeout bounds the HTTP server's graceful drain once Run's context
// is cancelled.
const drainTimeout = 10 * time.Second

// App owns all subsystem lifetimes for the charades server.
type App struct {
	cfg      *config.Config
	provider llm.Provider

	store    store.GameStore
	metrics  *observe.Metrics
	orch     *game.Orchestrator
	srv      *http.Server
	watcher  *config.Watcher
	logLevel *slog.LevelVar

	configPath string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithGameStore injects a game store instead of connecting to PostgreSQL.
func WithGameStore(s store.GameStore) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of using the global
// meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the app the level var behind the process logger so
// config reloads can adjust verbosity at runtime.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// WithConfigWatch enables hot reload by watching the config file at path.
// Only the language set and the log level are applied live; provider and
// database changes need a restart.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.configPath = path }
}

// New creates an App by wiring all subsystems together. The provider comes
// from main (built via the config registry and wrapped in the fallback
// chain). Use Option functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, provider llm.Provider, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		provider: provider,
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	a.orch = game.New(a.store, a.provider, llm.Languages(cfg.Languages),
		game.WithMetrics(a.metrics),
	)

	a.initServer()

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.applyConfigChange)
		if err != nil {
			return nil, fmt.Errorf("app: watch config: %w", err)
		}
		a.watcher = w
	}

	return a, nil
}

// initStore connects to PostgreSQL unless a store was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Database.DSN
	if dsn == "" {
		return fmt.Errorf("database.dsn is required when no store is injected")
	}

	st, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, func() error {
		st.Close()
		return nil
	})
	return nil
}

// initServer assembles the webhook server and the http.Server around it.
func (a *App) initServer() {
	checkers := []health.Checker{{
		Name: "provider",
		Check: func(context.Context) error {
			if a.provider == nil {
				return errors.New("no LLM provider configured")
			}
			return nil
		},
	}}
	if p, ok := a.store.(health.Pinger); ok {
		checkers = append(checkers, health.Database(p))
	}

	ws := webhook.New(a.orch,
		webhook.WithMetrics(a.metrics),
		webhook.WithHealth(health.New(checkers...)),
		webhook.WithPublicURL(a.cfg.Server.PublicURL),
	)

	a.srv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           ws.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Must outlast the LLM fallback chain so slow evaluations still
		// get a response written.
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
}

// Orchestrator exposes the game orchestrator, mainly for tests.
func (a *App) Orchestrator() *game.Orchestrator {
	return a.orch
}

// Run serves HTTP until ctx is cancelled or the listener fails. When ctx is
// done the server drains in-flight requests for up to drainTimeout, then Run
// returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		return a.srv.Shutdown(stopCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// applyConfigChange is the config watcher callback. It applies the subset
// of changes that are safe to take live.
func (a *App) applyConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.LanguagesChanged {
		a.orch.SetLanguages(llm.Languages(new.Languages))
		for _, lc := range d.LanguageChanges {
			switch {
			case lc.Added:
				slog.Info("language added", "code", lc.Code)
			case lc.Removed:
				slog.Info("language removed", "code", lc.Code)
			case lc.NameChanged:
				slog.Info("language renamed", "code", lc.Code)
			}
		}
	}
}

// Shutdown tears down all subsystems in reverse of how Run uses them. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.watcher != nil {
			a.watcher.Stop()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
