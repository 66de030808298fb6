// Package client wires the BugSentinel client: local storage, the remote
// gateway, the sync engine, the AI client and the service façade.
package client

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/client/ai"
	"bugsentinel/internal/app/client/config"
	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/app/client/gateway"
	"bugsentinel/internal/app/client/local"
	"bugsentinel/internal/app/client/service"
	"bugsentinel/internal/app/client/state"
)

const probeTimeout = 2 * time.Second

type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Store   *local.Store
	Gateway *gateway.HTTPGateway
	State   *state.Store
	Engine  *engine.Engine
	AI      *ai.Client
	Service *service.Service

	background bool
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	var backend local.Backend
	sqlite, err := local.NewSQLiteBackend(cfg.DataPath, cfg.QuotaBytes)
	if err != nil {
		log.Warn("local database unavailable, keeping data in memory", "path", cfg.DataPath, "error", err)
		backend = local.NewMemoryBackend(cfg.QuotaBytes)
	} else {
		backend = sqlite
	}
	store := local.NewStore(backend, log)

	gw, err := gateway.NewHTTPGateway(gateway.Config{
		ServerAddress: cfg.ServerAddress,
		EnableTLS:     cfg.EnableTLS,
		SessionFile:   cfg.TokenPath,
	}, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init gateway: %w", err)
	}

	st := state.New()
	online := engine.Probe(ctx, gw, probeTimeout)
	eng := engine.New(store, gw, st, log, engine.Config{
		MaxRetries:   cfg.MaxRetries,
		SyncInterval: cfg.SyncInterval,
		StartOnline:  online,
	})

	aiClient := ai.New(newCompleter(cfg, log), ai.Config{
		RequestsPerHour: cfg.AIRateLimit,
		CacheTTL:        cfg.AICacheTTL,
	}, log)

	app := &App{
		Config:  cfg,
		Log:     log,
		Store:   store,
		Gateway: gw,
		State:   st,
		Engine:  eng,
		AI:      aiClient,
		Service: service.New(store, gw, eng, st, aiClient, log),
	}

	log.Debug("client ready", "server", cfg.ServerAddress, "online", online)
	return app, nil
}

// newCompleter returns nil when no API key is configured; the AI client
// then reports ErrMissingAPIKey.
func newCompleter(cfg *config.Config, log *slog.Logger) ai.Completer {
	if cfg.AIAPIKey == "" {
		return nil
	}
	c, err := ai.NewAnthropicCompleter(cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		log.Warn("AI client disabled", "error", err)
		return nil
	}
	return c
}

// CatchUp uploads changes left over from earlier offline sessions.
func (a *App) CatchUp(ctx context.Context) {
	if !a.Engine.IsOnline() || a.Store.QueueLength() == 0 || a.Gateway.CurrentUser() == nil {
		return
	}

	res, err := a.Engine.SyncNow(ctx)
	switch {
	case err != nil:
		a.Log.Warn("catch-up sync failed", "error", err)
	case res != nil:
		a.Log.Info("catch-up sync done", "uploaded", res.Uploaded, "failed", res.Failed)
	}
}

// StartBackground enables the periodic sync loop and the connectivity
// monitor for long-running commands.
func (a *App) StartBackground() {
	if a.background {
		return
	}
	a.background = true
	a.Engine.Start()
	a.Engine.StartMonitor(a.Gateway, a.Config.ProbeInterval)
}

// Run keeps background sync going until ctx ends or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a.StartBackground()
	a.Log.Info("client running", "server", a.Config.ServerAddress)

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Close stops background work and releases the local database.
func (a *App) Close() {
	a.Service.Close()
	a.Engine.Close()
	if err := a.Store.Close(); err != nil {
		a.Log.Warn("close local store", "error", err)
	}
}

type ctxKey struct{}

func WithApp(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the App attached by the root command.
func FromContext(ctx context.Context) (*App, error) {
	a, ok := ctx.Value(ctxKey{}).(*App)
	if !ok || a == nil {
		return nil, errors.New("client is not initialized")
	}
	return a, nil
}
