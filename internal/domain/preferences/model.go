package preferences

import (
	"fmt"
	"time"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type EditorSettings struct {
	FontSize    int    `json:"fontSize" toml:"font_size"`
	TabSize     int    `json:"tabSize" toml:"tab_size"`
	WordWrap    string `json:"wordWrap" toml:"word_wrap"`
	Minimap     bool   `json:"minimap" toml:"minimap"`
	LineNumbers string `json:"lineNumbers" toml:"line_numbers"`
}

func DefaultEditorSettings() EditorSettings {
	return EditorSettings{
		FontSize:    14,
		TabSize:     2,
		WordWrap:    "on",
		Minimap:     false,
		LineNumbers: "on",
	}
}

// Preferences is the single per-user settings record.
type Preferences struct {
	UserID         string         `json:"user_id,omitempty" toml:"-"`
	Theme          Theme          `json:"theme" toml:"theme"`
	EditorSettings EditorSettings `json:"editor_settings" toml:"editor"`
	LastSnippetID  string         `json:"last_snippet_id,omitempty" toml:"last_snippet_id,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at" toml:"-"`
}

func Default() Preferences {
	return Preferences{
		Theme:          ThemeLight,
		EditorSettings: DefaultEditorSettings(),
	}
}

// UpsertRequest carries the fields to overwrite; nil means keep.
type UpsertRequest struct {
	Theme          *Theme          `json:"theme,omitempty"`
	EditorSettings *EditorSettings `json:"editor_settings,omitempty"`
	LastSnippetID  *string         `json:"last_snippet_id,omitempty"`
}

func (r UpsertRequest) Validate() error {
	if r.Theme != nil && !r.Theme.Valid() {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidInput, *r.Theme)
	}
	if es := r.EditorSettings; es != nil {
		if es.FontSize < 8 || es.FontSize > 48 {
			return fmt.Errorf("%w: font size %d out of range", ErrInvalidInput, es.FontSize)
		}
		if es.TabSize < 1 || es.TabSize > 8 {
			return fmt.Errorf("%w: tab size %d out of range", ErrInvalidInput, es.TabSize)
		}
	}
	return nil
}

// Apply overwrites the present fields of p.
func (r UpsertRequest) Apply(p *Preferences) {
	if r.Theme != nil {
		p.Theme = *r.Theme
	}
	if r.EditorSettings != nil {
		p.EditorSettings = *r.EditorSettings
	}
	if r.LastSnippetID != nil {
		p.LastSnippetID = *r.LastSnippetID
	}
}

// Request builds the full replace request for p.
func (p Preferences) Request() UpsertRequest {
	theme := p.Theme
	es := p.EditorSettings
	last := p.LastSnippetID
	return UpsertRequest{Theme: &theme, EditorSettings: &es, LastSnippetID: &last}
}
