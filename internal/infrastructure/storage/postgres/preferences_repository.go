package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/preferences"
)

type PreferencesRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPreferencesRepository(pool *pgxpool.Pool, log *slog.Logger) *PreferencesRepository {
	return &PreferencesRepository{
		pool: pool,
		log:  log.With("component", "preferences_repository"),
	}
}

func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*preferences.Preferences, error) {
	var (
		p     preferences.Preferences
		theme string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT user_id::text, theme, editor_settings, last_snippet_id, updated_at
		FROM user_preferences WHERE user_id = $1`, userID).
		Scan(&p.UserID, &theme, &p.EditorSettings, &p.LastSnippetID, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, preferences.ErrNotFound
		}
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	p.Theme = preferences.Theme(theme)
	return &p, nil
}

func (r *PreferencesRepository) Upsert(ctx context.Context, p *preferences.Preferences) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, theme, editor_settings, last_snippet_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET theme = EXCLUDED.theme,
		    editor_settings = EXCLUDED.editor_settings,
		    last_snippet_id = EXCLUDED.last_snippet_id,
		    updated_at = EXCLUDED.updated_at`,
		p.UserID, string(p.Theme), p.EditorSettings, p.LastSnippetID, p.UpdatedAt)
	if err != nil {
		r.log.Error("failed to upsert preferences", "user_id", p.UserID, "error", err)
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
