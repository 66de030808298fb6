package snippet

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/server/api/http/middleware/auth"
	"bugsentinel/internal/app/server/api/http/problem"
	"bugsentinel/internal/domain/snippet"
)

type Handler struct {
	service    snippet.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service snippet.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "snippet_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	items, err := h.service.List(ctx, userID)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return &listOutput{Body: snippet.ListResponse{Snippets: items}}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	sn, err := h.service.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return &output{Body: sn}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	sn, err := h.service.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return &output{Body: sn}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*struct{}, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.Delete(ctx, userID, input.ID); err != nil {
		return nil, problem.From(h.log, err)
	}
	return nil, nil
}
