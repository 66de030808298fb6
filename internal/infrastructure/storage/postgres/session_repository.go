package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// SessionRepository keeps revoked token ids until the tokens expire.
type SessionRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSessionRepository(pool *pgxpool.Pool, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		pool: pool,
		log:  log.With("component", "session_repository"),
	}
}

func (r *SessionRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2)
		 ON CONFLICT (token_id) DO NOTHING`,
		tokenID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}

	// Expired tokens fail validation on their own.
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`)
	if err != nil {
		r.log.Warn("failed to prune revoked tokens", "error", err)
	} else if n := tag.RowsAffected(); n > 0 {
		r.log.Debug("pruned revoked tokens", "count", n)
	}
	return nil
}

func (r *SessionRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`, tokenID).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
