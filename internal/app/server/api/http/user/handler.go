package user

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/server/api/http/middleware/auth"
	"bugsentinel/internal/app/server/api/http/problem"
	"bugsentinel/internal/domain/session"
	"bugsentinel/internal/domain/user"
)

type Handler struct {
	service   user.Servicer
	session   session.Servicer
	log       *slog.Logger
	public    huma.Middlewares
	protected huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, public, protected huma.Middlewares) *Handler {
	return &Handler{
		service:   service,
		session:   session,
		log:       log.With("component", "auth_handler"),
		public:    public,
		protected: protected,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.signUpOp(), h.signUp)
	huma.Register(api, h.signInOp(), h.signIn)
	huma.Register(api, h.signOutOp(), h.signOut)
	huma.Register(api, h.meOp(), h.me)
}

func (h *Handler) signUp(ctx context.Context, input *credentialsInput) (*authOutput, error) {
	u, err := h.service.SignUp(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	h.log.Info("user signed up", "user_id", u.ID)
	return h.issue(ctx, u)
}

func (h *Handler) signIn(ctx context.Context, input *credentialsInput) (*authOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return h.issue(ctx, u)
}

func (h *Handler) issue(ctx context.Context, u user.User) (*authOutput, error) {
	token, err := h.session.Create(ctx, u.ID)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return &authOutput{Body: user.AuthResponse{
		AccessToken: token.Value,
		ExpiresAt:   token.ExpiresAt,
		User:        u,
	}}, nil
}

func (h *Handler) signOut(ctx context.Context, _ *struct{}) (*struct{}, error) {
	token, ok := auth.GetToken(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.session.Revoke(ctx, token); err != nil {
		return nil, problem.From(h.log, err)
	}
	return nil, nil
}

func (h *Handler) me(ctx context.Context, _ *struct{}) (*meOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	u, err := h.service.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// The account is gone; the token is no longer useful.
			return nil, huma.Error401Unauthorized("Unauthorized")
		}
		return nil, problem.From(h.log, err)
	}
	return &meOutput{Body: u}, nil
}
