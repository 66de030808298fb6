package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
	"golang.org/x/exp/slog"
)

const issuer = "bugsentinel"

type Servicer interface {
	Create(ctx context.Context, userID string) (Token, error)
	Validate(ctx context.Context, token string) (Claims, error)
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, secret string, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log.With("component", "session_service"),
		now:    time.Now,
	}
}

func (s *Service) Create(_ context.Context, userID string) (Token, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Value: signed, ExpiresAt: exp}, nil
}

func (s *Service) parse(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &rc, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if rc.Subject == "" || rc.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: rc.Subject, TokenID: rc.ID, ExpiresAt: rc.ExpiresAt.Time}, nil
}

func (s *Service) Validate(ctx context.Context, token string) (Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Claims{}, err
	}

	revoked, err := s.repo.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrRevoked
	}

	return claims, nil
}

// Revoke signs a token out. Revoking an already invalid token is a no-op.
func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.log.Debug("revoke of invalid token ignored")
			return nil
		}
		return err
	}

	if err := s.repo.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
