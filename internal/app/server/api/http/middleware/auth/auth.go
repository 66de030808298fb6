package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/session"
)

type Auth struct {
	api     huma.API
	session session.Servicer
	log     *slog.Logger
}

func New(api huma.API, session session.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		api:     api,
		session: session,
		log:     log.With("component", "auth_middleware"),
	}
}

type contextKey string

const (
	claimsKey contextKey = "claims"
	tokenKey  contextKey = "token"
)

// Middleware rejects requests without a valid, unrevoked bearer token and
// puts the token's claims into the request context.
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token, ok := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		if !ok || token == "" {
			a.log.Debug("missing bearer token", "path", ctx.URL().Path)
			_ = huma.WriteErr(a.api, ctx, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := a.session.Validate(ctx.Context(), token)
		if err != nil {
			a.log.Debug("token rejected", "path", ctx.URL().Path, "error", err)
			_ = huma.WriteErr(a.api, ctx, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		c := context.WithValue(ctx.Context(), claimsKey, claims)
		c = context.WithValue(c, tokenKey, token)
		next(huma.WithContext(ctx, c))
	}
}

func GetUserID(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(claimsKey).(session.Claims)
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}

// GetToken returns the raw bearer token of an authenticated request.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

// WithClaims is used by tests that call handlers directly.
func WithClaims(ctx context.Context, claims session.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, tokenKey, token)
}
