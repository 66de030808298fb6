package snippet

import "context"

type Repository interface {
	// Create inserts s, or loads the existing row when the user already
	// has one with the same non-empty ClientID.
	Create(ctx context.Context, s *Snippet) error
	Get(ctx context.Context, userID, id string) (*Snippet, error)
	List(ctx context.Context, userID string) ([]Snippet, error)
	Update(ctx context.Context, s *Snippet) error
	Delete(ctx context.Context, userID, id string) error
}
