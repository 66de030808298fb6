// Package server wires the BugSentinel API server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/server/api"
	"bugsentinel/internal/app/server/config"
	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/session"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
	"bugsentinel/internal/infrastructure/migration"
	"bugsentinel/internal/infrastructure/storage/postgres"
)

type App struct {
	cfg     *config.Config
	log     *slog.Logger
	storage *postgres.Storage
	http    *http.Server
}

// New migrates the schema, opens the pool and builds the HTTP server.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := migration.New(cfg.DB.Migrations, cfg.DB.DatabaseURI, nil, log).Up(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	storage, err := postgres.New(ctx, cfg.DB.DatabaseURI)
	if err != nil {
		return nil, err
	}

	pool := storage.Pool()
	svc := api.Services{
		Health:      storage,
		Users:       user.NewService(postgres.NewUserRepository(pool, log), user.NewPasswordValidator(), log),
		Sessions:    session.NewService(postgres.NewSessionRepository(pool, log), cfg.Auth.Secret, cfg.Auth.TokenTTL, log),
		Snippets:    snippet.NewService(postgres.NewSnippetRepository(pool, log), log),
		Preferences: preferences.NewService(postgres.NewPreferencesRepository(pool, log), log),
	}

	return &App{
		cfg:     cfg,
		log:     log,
		storage: storage,
		http: &http.Server{
			Addr:              cfg.Server.RunAddress,
			Handler:           api.New(svc, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server started", "address", a.cfg.Server.RunAddress, "env", a.cfg.Env)
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if err := a.storage.Close(); err != nil {
		a.log.Warn("close storage", "error", err)
	}
}
