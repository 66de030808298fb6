package engine

import (
	"sort"
	"time"

	"bugsentinel/internal/domain/snippet"
)

// DefaultMatchWindow is how far apart two creation times may be for a
// local and a remote snippet to count as the same logical snippet.
const DefaultMatchWindow = 60 * time.Second

// Matcher reports whether remote r already represents local l.
type Matcher func(l snippet.LocalSnippet, r snippet.Snippet) bool

// SameContent matches on title, language and creation time within window.
func SameContent(window time.Duration) Matcher {
	return func(l snippet.LocalSnippet, r snippet.Snippet) bool {
		if l.Title != r.Title || l.Language != r.Language {
			return false
		}
		d := l.CreatedAt.Sub(r.CreatedAt)
		if d < 0 {
			d = -d
		}
		return d <= window
	}
}

// Merge builds the visible snippet set: every remote snippet, then each
// local one that no remote snippet represents. A local copy bound to a
// listed remote row stands in for it only while its edit is unsynced.
// Newest update first.
func Merge(local []snippet.LocalSnippet, remote []snippet.Snippet, window time.Duration) []snippet.View {
	return MergeWith(local, remote, SameContent(window))
}

func MergeWith(local []snippet.LocalSnippet, remote []snippet.Snippet, match Matcher) []snippet.View {
	byID := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		byID[r.ID] = struct{}{}
	}

	edited := make(map[string]snippet.LocalSnippet)
	for _, l := range local {
		if _, bound := byID[l.RemoteID]; l.RemoteID != "" && bound && l.SyncStatus != snippet.SyncSynced {
			edited[l.RemoteID] = l
		}
	}

	out := make([]snippet.View, 0, len(remote)+len(local))
	for _, r := range remote {
		if l, ok := edited[r.ID]; ok {
			out = append(out, l.View())
			continue
		}
		out = append(out, r.View())
	}

	for _, l := range local {
		if _, bound := byID[l.RemoteID]; l.RemoteID != "" && bound {
			continue
		}
		if containsMatch(l, remote, match) {
			continue
		}
		out = append(out, l.View())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func containsMatch(l snippet.LocalSnippet, remote []snippet.Snippet, match Matcher) bool {
	for _, r := range remote {
		if match(l, r) {
			return true
		}
	}
	return false
}

// FindRemoteMatch locates the remote row for key. Ties go to the most
// recently updated row.
func FindRemoteMatch(remote []snippet.Snippet, key snippet.Key) (snippet.Snippet, bool) {
	var (
		best  snippet.Snippet
		found bool
	)
	for _, r := range remote {
		if r.Key() != key {
			continue
		}
		if !found || r.UpdatedAt.After(best.UpdatedAt) {
			best, found = r, true
		}
	}
	return best, found
}
