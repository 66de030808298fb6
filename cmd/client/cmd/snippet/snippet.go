package snippet

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	domain "bugsentinel/internal/domain/snippet"
)

// SnippetCmd groups the snippet commands.
var SnippetCmd = &cobra.Command{
	Use:     "snippet",
	Aliases: []string{"snippets", "s"},
	Short:   "Manage code snippets",
	Long: `Create, list, show, update and delete code snippets.

Changes made while offline are kept on this device and uploaded on the
next sync.`,
}

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseSince accepts a date, a Go duration ("36h") or a phrase such as
// "yesterday" or "last monday".
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}

	r, err := dateParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse --since %q: unrecognised date", s)
	}
	return r.Time, nil
}

func parseLanguage(s string) (domain.Language, error) {
	l := domain.Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsSupported() {
		return "", fmt.Errorf("unsupported language %q, see 'bugsentinel languages'", s)
	}
	return l, nil
}

func filter(list []domain.View, since time.Time, lang domain.Language) []domain.View {
	out := make([]domain.View, 0, len(list))
	for _, v := range list {
		if !since.IsZero() && v.UpdatedAt.Before(since) {
			continue
		}
		if lang != "" && v.Language != lang {
			continue
		}
		out = append(out, v)
	}
	return out
}
