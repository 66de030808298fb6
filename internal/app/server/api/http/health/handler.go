package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db         Pinger
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(db Pinger, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:         db,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

// healthCheck answers 503 while the database is down so clients treat the
// server as unreachable and keep queueing locally.
func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn("health check: database unreachable", "error", err)
			return nil, huma.Error503ServiceUnavailable("database unavailable")
		}
	}

	return &Output{Body: Response{Status: "OK"}}, nil
}
