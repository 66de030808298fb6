package session

import (
	"context"
	"time"
)

// Repository keeps the deny-list of signed-out tokens until they expire.
type Repository interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
