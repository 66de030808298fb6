package snippet

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		kind    RefKind
		wantErr bool
	}{
		{name: "local id", in: "local_cn1k2s3p9u8lq5vr6ab0", kind: RefLocal},
		{name: "remote uuid", in: "0b5c3f64-2f0b-4b1f-8f8e-61b7c8b9e0a1", kind: RefRemote},
		{name: "trimmed", in: "  local_x ", kind: RefLocal},
		{name: "empty", in: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRef(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ref.Kind())
		})
	}
}

func TestRef_JSON(t *testing.T) {
	v := View{Ref: LocalRef("local_abc"), Title: "t"}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"local_abc"`)

	var back View
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Ref.IsLocal())
	assert.True(t, back.Ref.Equal(v.Ref))
}

func TestDefaultTitle(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "Python Snippet - Jan 15, 2024", DefaultTitle(LangPython, now))
	assert.Equal(t, "C++ Snippet - Jan 15, 2024", DefaultTitle(LangCPP, now))
}

func TestLanguage(t *testing.T) {
	assert.True(t, LangRust.IsSupported())
	assert.False(t, Language("cobol").IsSupported())
	assert.Equal(t, "C#", LangCSharp.Label())
	assert.Equal(t, "cobol", Language("cobol").Label())
	assert.Len(t, SupportedLanguages(), 15)
}

func TestUpdateRequest_Apply(t *testing.T) {
	s := LocalSnippet{Title: "a", Language: LangGo, Code: "x"}

	title := "b"
	assert.True(t, UpdateRequest{Title: &title}.Apply(&s))
	assert.Equal(t, "b", s.Title)
	assert.Equal(t, "x", s.Code)

	assert.False(t, UpdateRequest{Title: &title}.Apply(&s))
	assert.True(t, UpdateRequest{}.IsEmpty())
}
