package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/user"
)

type UserRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewUserRepository(pool *pgxpool.Pool, log *slog.Logger) *UserRepository {
	return &UserRepository{
		pool: pool,
		log:  log.With("component", "user_repository"),
	}
}

func (r *UserRepository) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, email, passwordHash).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrAlreadyExists
		}
		r.log.Error("failed to create user", "error", err)
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, `SELECT id::text, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}
	return r.findOne(ctx, `SELECT id::text, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
