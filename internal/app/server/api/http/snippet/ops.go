package snippet

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "snippets-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/snippets",
		Summary:     "List snippets, most recently updated first",
		Tags:        []string{"snippets"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "snippets-create",
		Method:        http.MethodPost,
		Path:          "/api/v1/snippets",
		Summary:       "Create a snippet",
		Description:   "A repeated request with the same client_id returns the snippet created first.",
		Tags:          []string{"snippets"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "snippets-update",
		Method:      http.MethodPatch,
		Path:        "/api/v1/snippets/{id}",
		Summary:     "Update some fields of a snippet",
		Tags:        []string{"snippets"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "snippets-delete",
		Method:        http.MethodDelete,
		Path:          "/api/v1/snippets/{id}",
		Summary:       "Delete a snippet",
		Tags:          []string{"snippets"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}
