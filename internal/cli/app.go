package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/cart"
	"github.com/mviana-dev/sebo/internal/catalog"
	"github.com/mviana-dev/sebo/internal/checkout"
	"github.com/mviana-dev/sebo/internal/config"
	"github.com/mviana-dev/sebo/internal/events"
	"github.com/mviana-dev/sebo/internal/localstate"
	"github.com/mviana-dev/sebo/internal/session"
)

// App wires the client together for one command invocation.
type App struct {
	Config   *config.Config
	State    *localstate.Store
	Session  *session.Store
	Bus      events.Dispatcher
	Client   *api.Client
	Catalog  *catalog.Cache
	Engine   *cart.Engine
	Checkout *checkout.Manager
	Logger   *slog.Logger
}

// buildApp constructs the full dependency graph from configuration.
func buildApp(opts *RootOptions) (*App, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	logger := newLogger(cfg.LogLevel, opts.Verbose)

	state, err := localstate.Open(cfg.StatePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open local state", err)
	}

	sessionStore := session.NewStore(session.WithPersister(state))
	if err := sessionStore.Restore(); err != nil {
		logger.Warn("could not restore persisted session", "err", err)
	}

	// The shell owns navigation: session signals surface here as guidance
	// on stderr, never as side effects inside the core.
	bus := events.NewDispatcher()
	bus.Subscribe(events.TypeSessionExpired, func(e events.Event) {
		fmt.Fprintf(os.Stderr, "%s (run 'sebo login' to sign in again)\n", e.Cause)
	})
	bus.Subscribe(events.TypeConnectivityLost, func(e events.Event) {
		fmt.Fprintln(os.Stderr, e.Cause)
	})

	client, err := api.NewClient(cfg.API.BaseURL, sessionStore, bus,
		api.WithTimeout(cfg.API.Timeout()),
		api.WithLogger(logger),
		api.WithRateLimit(cfg.API.RateLimitRPS),
	)
	if err != nil {
		state.Close()
		return nil, WrapExitError(ExitCommandError, "configure API client", err)
	}

	cache := catalog.NewCache(client, logger)
	engine := cart.NewEngine(client, cache, sessionStore,
		cart.WithLogger(logger),
		cart.WithJournal(state),
	)

	return &App{
		Config:   cfg,
		State:    state,
		Session:  sessionStore,
		Bus:      bus,
		Client:   client,
		Catalog:  cache,
		Engine:   engine,
		Checkout: checkout.NewManager(client, engine, logger),
		Logger:   logger,
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	a.Engine.Close()
	if err := a.State.Close(); err != nil {
		a.Logger.Warn("closing local state", "err", err)
	}
}

func newLogger(level string, verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
