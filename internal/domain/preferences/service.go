package preferences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Upsert(ctx context.Context, userID string, req UpsertRequest) (*Preferences, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "preferences_service"),
	}
}

func (s *Service) Get(ctx context.Context, userID string) (*Preferences, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// Upsert is last-write-wins: the stored record is read, patched and replaced.
func (s *Service) Upsert(ctx context.Context, userID string, req UpsertRequest) (*Preferences, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		d := Default()
		current = &d
	case err != nil:
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	current.UserID = userID
	req.Apply(current)
	current.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}

	s.log.Debug("preferences saved", "user_id", userID, "theme", current.Theme)
	return current, nil
}
