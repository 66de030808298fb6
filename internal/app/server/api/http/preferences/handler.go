package preferences

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/server/api/http/middleware/auth"
	"bugsentinel/internal/app/server/api/http/problem"
	"bugsentinel/internal/domain/preferences"
)

type upsertInput struct {
	Body preferences.UpsertRequest
}

type output struct {
	Body *preferences.Preferences
}

var bearer = []map[string][]string{{"bearer": {}}}

type Handler struct {
	service    preferences.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service preferences.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "preferences_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "preferences-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences",
		Summary:     "Get preferences; 404 until they are first saved",
		Tags:        []string{"preferences"},
		Security:    bearer,
		Middlewares: h.middleware,
	}, h.get)

	huma.Register(api, huma.Operation{
		OperationID: "preferences-upsert",
		Method:      http.MethodPut,
		Path:        "/api/v1/preferences",
		Summary:     "Create or update preferences, last write wins",
		Tags:        []string{"preferences"},
		Security:    bearer,
		Middlewares: h.middleware,
	}, h.upsert)
}

func (h *Handler) get(ctx context.Context, _ *struct{}) (*output, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	p, err := h.service.Get(ctx, userID)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return &output{Body: p}, nil
}

func (h *Handler) upsert(ctx context.Context, input *upsertInput) (*output, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	p, err := h.service.Upsert(ctx, userID, input.Body)
	if err != nil {
		return nil, problem.From(h.log, err)
	}
	return &output{Body: p}, nil
}
