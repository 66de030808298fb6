package user

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) signUpOp() huma.Operation {
	return huma.Operation{
		OperationID:   "auth-signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Create an account",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.public,
	}
}

func (h *Handler) signInOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-signin",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Exchange credentials for an access token",
		Tags:        []string{"auth"},
		Middlewares: h.public,
	}
}

func (h *Handler) signOutOp() huma.Operation {
	return huma.Operation{
		OperationID:   "auth-signout",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signout",
		Summary:       "Revoke the current access token",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   h.protected,
	}
}

func (h *Handler) meOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Tags:        []string{"auth"},
		Security:    bearer,
		Middlewares: h.protected,
	}
}
