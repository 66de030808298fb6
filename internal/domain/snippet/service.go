package snippet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, userID string, req CreateRequest) (*Snippet, error)
	Update(ctx context.Context, userID, id string, req UpdateRequest) (*Snippet, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string) ([]Snippet, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "snippet_service"),
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Snippet, error) {
	if err := req.Validate(); err != nil {
		s.log.Debug("create rejected", "user_id", userID, "error", err)
		return nil, err
	}

	now := s.now().UTC()
	sn := &Snippet{
		UserID:    userID,
		ClientID:  req.ClientID,
		Title:     req.Title,
		Language:  req.Language,
		Code:      req.Code,
		Analysis:  req.Analysis,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, sn); err != nil {
		return nil, fmt.Errorf("create snippet: %w", err)
	}

	return sn, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*Snippet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sn, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snippet: %w", err)
	}

	req.ApplyRemote(sn)
	// updated time is re-stamped even when the fields are unchanged
	sn.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, sn); err != nil {
		return nil, fmt.Errorf("update snippet: %w", err)
	}

	return sn, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete snippet: %w", err)
	}
	return nil
}

// List returns the user's snippets, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]Snippet, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	if items == nil {
		items = []Snippet{}
	}
	return items, nil
}
