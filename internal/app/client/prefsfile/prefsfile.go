// Package prefsfile moves preferences in and out of TOML files.
package prefsfile

import (
	"fmt"
	"io"

	toml "github.com/pelletier/go-toml/v2"

	"bugsentinel/internal/domain/preferences"
)

// Export writes p as TOML.
func Export(w io.Writer, p preferences.Preferences) error {
	b, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// fileShape mirrors the exported document with every field optional, so a
// partial file only overwrites what it names.
type fileShape struct {
	Theme         *preferences.Theme `toml:"theme"`
	LastSnippetID *string            `toml:"last_snippet_id"`
	Editor        *struct {
		FontSize    *int    `toml:"font_size"`
		TabSize     *int    `toml:"tab_size"`
		WordWrap    *string `toml:"word_wrap"`
		Minimap     *bool   `toml:"minimap"`
		LineNumbers *string `toml:"line_numbers"`
	} `toml:"editor"`
}

// Import reads a TOML document and returns the update it describes,
// layered over base for the editor table.
func Import(r io.Reader, base preferences.Preferences) (preferences.UpsertRequest, error) {
	var f fileShape
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return preferences.UpsertRequest{}, fmt.Errorf("parse preferences: %w", err)
	}

	req := preferences.UpsertRequest{
		Theme:         f.Theme,
		LastSnippetID: f.LastSnippetID,
	}
	if e := f.Editor; e != nil {
		es := base.EditorSettings
		if e.FontSize != nil {
			es.FontSize = *e.FontSize
		}
		if e.TabSize != nil {
			es.TabSize = *e.TabSize
		}
		if e.WordWrap != nil {
			es.WordWrap = *e.WordWrap
		}
		if e.Minimap != nil {
			es.Minimap = *e.Minimap
		}
		if e.LineNumbers != nil {
			es.LineNumbers = *e.LineNumbers
		}
		req.EditorSettings = &es
	}

	if err := req.Validate(); err != nil {
		return preferences.UpsertRequest{}, err
	}
	return req, nil
}
