// Package problem maps domain errors onto huma's RFC 9457 responses.
package problem

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/session"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

// From converts err into a huma status error. Unknown errors become a 500
// and are logged; their text is not sent to the client.
func From(log *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, snippet.ErrNotFound),
		errors.Is(err, preferences.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, snippet.ErrInvalidInput),
		errors.Is(err, preferences.ErrInvalidInput),
		errors.Is(err, user.ErrInvalidInput):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, user.ErrAlreadyExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, user.ErrInvalidAuth),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrRevoked):
		return huma.Error401Unauthorized(err.Error())
	case errors.Is(err, snippet.ErrForbidden):
		return huma.Error403Forbidden(err.Error())
	}

	log.Error("request failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}
