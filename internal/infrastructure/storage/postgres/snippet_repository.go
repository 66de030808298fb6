package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/snippet"
)

const snippetColumns = `id::text, user_id::text, COALESCE(client_id, ''), title, language, code, analysis, created_at, updated_at`

type SnippetRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSnippetRepository(pool *pgxpool.Pool, log *slog.Logger) *SnippetRepository {
	return &SnippetRepository{
		pool: pool,
		log:  log.With("component", "snippet_repository"),
	}
}

// Create inserts s. When the user already has a row with the same client
// id, that row is loaded into s instead.
func (r *SnippetRepository) Create(ctx context.Context, s *snippet.Snippet) error {
	s.ID = uuid.NewString()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO snippets (id, user_id, client_id, title, language, code, analysis, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, client_id) WHERE client_id IS NOT NULL
		DO UPDATE SET client_id = EXCLUDED.client_id
		RETURNING `+snippetColumns,
		s.ID, s.UserID, s.ClientID, s.Title, string(s.Language), s.Code, s.Analysis, s.CreatedAt, s.UpdatedAt)

	if err := scanSnippet(row, s); err != nil {
		r.log.Error("failed to create snippet", "user_id", s.UserID, "error", err)
		return fmt.Errorf("insert snippet: %w", err)
	}
	return nil
}

func (r *SnippetRepository) Get(ctx context.Context, userID, id string) (*snippet.Snippet, error) {
	if !validID(id) {
		return nil, snippet.ErrNotFound
	}

	var s snippet.Snippet
	row := r.pool.QueryRow(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = $1 AND user_id = $2`, id, userID)
	if err := scanSnippet(row, &s); err != nil {
		if isNoRows(err) {
			return nil, snippet.ErrNotFound
		}
		return nil, fmt.Errorf("select snippet: %w", err)
	}
	return &s, nil
}

func (r *SnippetRepository) List(ctx context.Context, userID string) ([]snippet.Snippet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		r.log.Error("failed to list snippets", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	items := []snippet.Snippet{}
	for rows.Next() {
		var s snippet.Snippet
		if err := scanSnippet(rows, &s); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}
	return items, nil
}

func (r *SnippetRepository) Update(ctx context.Context, s *snippet.Snippet) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE snippets
		SET title = $3, language = $4, code = $5, analysis = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2`,
		s.ID, s.UserID, s.Title, string(s.Language), s.Code, s.Analysis, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update snippet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return snippet.ErrNotFound
	}
	return nil
}

func (r *SnippetRepository) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return snippet.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM snippets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return snippet.ErrNotFound
	}
	return nil
}

func scanSnippet(row pgx.Row, s *snippet.Snippet) error {
	var lang string
	err := row.Scan(&s.ID, &s.UserID, &s.ClientID, &s.Title, &lang, &s.Code, &s.Analysis, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return err
	}
	s.Language = snippet.Language(lang)
	return nil
}
