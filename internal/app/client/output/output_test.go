package output

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", Text, false},
		{"TEXT", Text, false},
		{"json", JSON, false},
		{" yaml ", YAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender(t *testing.T) {
	v := snippet.View{
		Ref:        snippet.LocalRef("local_abc"),
		Title:      "hello",
		Language:   snippet.LangGo,
		SyncStatus: snippet.SyncPending,
		UpdatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, JSON, v, nil))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "local_abc", got["id"])
		assert.Equal(t, "pending", got["sync_status"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, YAML, v, nil))

		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "local_abc", got["id"])
		assert.Equal(t, "go", got["language"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		called := false
		require.NoError(t, Render(&buf, Text, v, func(w io.Writer) error {
			called = true
			_, err := io.WriteString(w, "custom\n")
			return err
		}))
		assert.True(t, called)
		assert.Equal(t, "custom\n", buf.String())
	})
}

func TestSnippetTable(t *testing.T) {
	color.NoColor = true
	p := PaletteFor(preferences.ThemeLight)

	var buf bytes.Buffer
	require.NoError(t, SnippetTable(&buf, p, nil))
	assert.Equal(t, "No snippets.\n", buf.String())

	buf.Reset()
	require.NoError(t, SnippetTable(&buf, p, []snippet.View{{
		Ref:        snippet.RemoteRef("r1"),
		Title:      "one",
		Language:   snippet.LangRust,
		SyncStatus: snippet.SyncSynced,
	}}))
	assert.Contains(t, buf.String(), "r1")
	assert.Contains(t, buf.String(), "synced")
	assert.Contains(t, buf.String(), "one")
}

func TestIssues(t *testing.T) {
	color.NoColor = true
	p := PaletteFor(preferences.ThemeDark)

	var buf bytes.Buffer
	require.NoError(t, Issues(&buf, p, []snippet.Issue{{Line: 3, Column: 7, Severity: "high", Type: "bug", Message: "boom", Suggestion: "don't"}}))
	assert.Contains(t, buf.String(), "3:7")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "don't")
}
