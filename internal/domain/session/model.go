package session

import (
	"errors"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevoked      = errors.New("session revoked")
)

type Token struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is what a validated token says about its holder.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}
