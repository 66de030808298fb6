package snippet

type ListResponse struct {
	Snippets []Snippet `json:"snippets"`
}
