// Package api builds the BugSentinel HTTP API.
//
//	GET    /api/v1/health
//	POST   /api/v1/auth/signup
//	POST   /api/v1/auth/signin
//	POST   /api/v1/auth/signout      (auth)
//	GET    /api/v1/auth/me           (auth)
//	GET    /api/v1/snippets          (auth)
//	POST   /api/v1/snippets          (auth)
//	PATCH  /api/v1/snippets/{id}     (auth)
//	DELETE /api/v1/snippets/{id}     (auth)
//	GET    /api/v1/preferences       (auth)
//	PUT    /api/v1/preferences       (auth)
package api

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	healthAPI "bugsentinel/internal/app/server/api/http/health"
	"bugsentinel/internal/app/server/api/http/middleware"
	"bugsentinel/internal/app/server/api/http/middleware/auth"
	"bugsentinel/internal/app/server/api/http/middleware/logger"
	preferencesAPI "bugsentinel/internal/app/server/api/http/preferences"
	snippetAPI "bugsentinel/internal/app/server/api/http/snippet"
	userAPI "bugsentinel/internal/app/server/api/http/user"
	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/session"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

const requestTimeout = 30 * time.Second

// Services are the domain services behind the handlers.
type Services struct {
	Health      healthAPI.Pinger
	Users       user.Servicer
	Sessions    session.Servicer
	Snippets    snippet.Servicer
	Preferences preferences.Servicer
}

func New(svc Services, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RequestID, chimw.Recoverer, chimw.Timeout(requestTimeout))

	config := huma.DefaultConfig("BugSentinel API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}

	api := humachi.New(mux, config)
	Register(api, svc, log)
	return mux
}

// Register adds every operation to api.
func Register(api huma.API, svc Services, log *slog.Logger) {
	authMW := auth.New(api, svc.Sessions, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthAPI.NewHandler(svc.Health, log, middlewares.GetAllAndClear()).SetupRoutes(api)

	middlewares.Add(loggerMW.Middleware())
	public := middlewares.GetAllAndClear()
	middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
	protected := middlewares.GetAllAndClear()
	userAPI.NewHandler(svc.Users, svc.Sessions, log, public, protected).SetupRoutes(api)

	middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
	snippetAPI.NewHandler(svc.Snippets, log, middlewares.GetAllAndClear()).SetupRoutes(api)

	middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
	preferencesAPI.NewHandler(svc.Preferences, log, middlewares.GetAllAndClear()).SetupRoutes(api)
}
