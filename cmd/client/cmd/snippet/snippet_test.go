package snippet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "bugsentinel/internal/domain/snippet"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "empty", in: "", want: time.Time{}},
		{name: "date", in: "2024-05-01", want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", in: "2024-05-10T08:30:00Z", want: time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)},
		{name: "duration", in: "36h", want: now.Add(-36 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSince(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	t.Run("phrase", func(t *testing.T) {
		got, err := parseSince("yesterday", now)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 0, -1).YearDay(), got.YearDay())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseSince("qqq zzz", now)
		assert.Error(t, err)
	})
}

func TestParseLanguage(t *testing.T) {
	l, err := parseLanguage(" Go ")
	require.NoError(t, err)
	assert.Equal(t, domain.LangGo, l)

	_, err = parseLanguage("cobol")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	base := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	list := []domain.View{
		{Ref: domain.LocalRef("local_a"), Language: domain.LangGo, UpdatedAt: base},
		{Ref: domain.RemoteRef("r1"), Language: domain.LangPython, UpdatedAt: base.Add(-48 * time.Hour)},
		{Ref: domain.RemoteRef("r2"), Language: domain.LangGo, UpdatedAt: base.Add(-72 * time.Hour)},
	}

	assert.Len(t, filter(list, time.Time{}, ""), 3)

	got := filter(list, base.Add(-50*time.Hour), "")
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[1].Ref.ID())

	got = filter(list, time.Time{}, domain.LangGo)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[1].Ref.ID())
}
