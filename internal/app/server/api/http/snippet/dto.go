package snippet

import "bugsentinel/internal/domain/snippet"

type listOutput struct {
	Body snippet.ListResponse
}

type createInput struct {
	Body snippet.CreateRequest
}

type updateInput struct {
	ID   string `path:"id" doc:"Snippet id"`
	Body snippet.UpdateRequest
}

type deleteInput struct {
	ID string `path:"id" doc:"Snippet id"`
}

type output struct {
	Body *snippet.Snippet
}
