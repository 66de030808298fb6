package local

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/utils/logger"
)

func newTestStore(t *testing.T, quota int64) (*Store, *MemoryBackend) {
	t.Helper()
	b := NewMemoryBackend(quota)
	s := NewStore(b, logger.Discard())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return s, b
}

func ptr[T any](v T) *T { return &v }

func TestStore_SaveSnippet(t *testing.T) {
	s, _ := newTestStore(t, 0)

	sn, err := s.SaveSnippet(snippet.CreateRequest{Title: "hello", Language: snippet.LangGo, Code: "package main"})
	require.NoError(t, err)

	assert.Contains(t, sn.ID, snippet.LocalIDPrefix)
	assert.Equal(t, snippet.SyncPending, sn.SyncStatus)
	assert.Equal(t, sn.CreatedAt, sn.UpdatedAt)

	list := s.ListSnippets()
	require.Len(t, list, 1)
	assert.Equal(t, sn, list[0])

	queue := s.GetQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, OpCreate, queue[0].Kind)
	assert.Equal(t, sn.ID, queue[0].LocalID())
	assert.Equal(t, 1, s.QueueLength())
}

func TestStore_UpdateSnippet(t *testing.T) {
	s, _ := newTestStore(t, 0)

	sn, err := s.SaveSnippet(snippet.CreateRequest{Title: "a", Language: snippet.LangPython, Code: "x = 1"})
	require.NoError(t, err)
	require.NoError(t, s.MarkSnippetSynced(sn.ID, "remote-1"))

	t.Run("records the previous match key", func(t *testing.T) {
		updated, err := s.UpdateSnippet(sn.ID, snippet.UpdateRequest{Title: ptr("b")})
		require.NoError(t, err)

		assert.Equal(t, "b", updated.Title)
		assert.Equal(t, "remote-1", updated.RemoteID)
		assert.Equal(t, snippet.SyncPending, updated.SyncStatus)
		assert.True(t, updated.UpdatedAt.After(sn.UpdatedAt))

		queue := s.GetQueue()
		require.Len(t, queue, 2)
		last := queue[1]
		assert.Equal(t, OpUpdate, last.Kind)
		require.NotNil(t, last.Match)
		assert.Equal(t, snippet.Key{Title: "a", Language: snippet.LangPython}, *last.Match)
		assert.Equal(t, "b", last.Snippet.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.UpdateSnippet("local_missing", snippet.UpdateRequest{Title: ptr("c")})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Len(t, s.GetQueue(), 2)
	})
}

func TestStore_DeleteSnippet(t *testing.T) {
	s, _ := newTestStore(t, 0)

	sn, err := s.SaveSnippet(snippet.CreateRequest{Title: "a", Language: snippet.LangGo})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSnippet(sn.ID))
	assert.Empty(t, s.ListSnippets())

	queue := s.GetQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, OpDelete, queue[1].Kind)
	assert.Equal(t, "a", queue[1].Snippet.Title)

	assert.ErrorIs(t, s.DeleteSnippet(sn.ID), ErrNotFound)
}

func TestStore_StageRemote(t *testing.T) {
	s, _ := newTestStore(t, 0)
	base := snippet.Snippet{ID: "r1", Title: "remote", Language: snippet.LangRust, Code: "fn main() {}"}
	require.NoError(t, s.ReplaceRemoteSnippets([]snippet.Snippet{base}))

	first, err := s.StageRemoteUpdate(base, snippet.UpdateRequest{Code: ptr("fn main() { 1 }")})
	require.NoError(t, err)
	assert.Equal(t, "r1", first.RemoteID)

	second, err := s.StageRemoteUpdate(base, snippet.UpdateRequest{Title: ptr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second edit reuses the local copy")
	assert.Equal(t, "fn main() { 1 }", second.Code)
	assert.Len(t, s.ListSnippets(), 1)

	require.NoError(t, s.StageRemoteDelete(base))
	assert.Empty(t, s.ListSnippets())
	assert.Empty(t, s.RemoteSnippets())

	queue := s.GetQueue()
	require.Len(t, queue, 3)
	assert.Equal(t, []OpKind{OpUpdate, OpUpdate, OpDelete}, []OpKind{queue[0].Kind, queue[1].Kind, queue[2].Kind})
	assert.Equal(t, "r1", queue[2].Snippet.RemoteID)
}

func TestStore_RemoveQueueEntry(t *testing.T) {
	s, _ := newTestStore(t, 0)

	_, err := s.SaveSnippet(snippet.CreateRequest{Title: "a", Language: snippet.LangGo})
	require.NoError(t, err)
	_, err = s.SaveSnippet(snippet.CreateRequest{Title: "b", Language: snippet.LangGo})
	require.NoError(t, err)

	queue := s.GetQueue()
	require.NoError(t, s.RemoveQueueEntry(queue[0].ID))
	require.NoError(t, s.RemoveQueueEntry("unknown"))

	rest := s.GetQueue()
	require.Len(t, rest, 1)
	assert.Equal(t, queue[1].ID, rest[0].ID)

	require.NoError(t, s.ClearQueue())
	assert.Zero(t, s.QueueLength())
}

func TestStore_Preferences(t *testing.T) {
	s, _ := newTestStore(t, 0)
	assert.Nil(t, s.GetPreferences())

	p := preferences.Default()
	p.Theme = preferences.ThemeDark
	saved, err := s.SavePreferences(p)
	require.NoError(t, err)
	assert.Equal(t, snippet.SyncPending, saved.SyncStatus)

	t.Run("pending local copy is not overwritten by remote", func(t *testing.T) {
		require.NoError(t, s.CachePreferences(preferences.Default()))
		assert.Equal(t, preferences.ThemeDark, s.GetPreferences().Theme)
	})

	require.NoError(t, s.MarkPreferencesSynced())
	assert.Equal(t, snippet.SyncSynced, s.GetPreferences().SyncStatus)

	queue := s.GetQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, OpPreferences, queue[0].Kind)
	require.NotNil(t, queue[0].Preferences)
	assert.Equal(t, preferences.ThemeDark, queue[0].Preferences.Theme)
}

func TestStore_ReplaceRemoteSnippets(t *testing.T) {
	s, _ := newTestStore(t, 0)

	gone, err := s.SaveSnippet(snippet.CreateRequest{Title: "gone", Language: snippet.LangGo})
	require.NoError(t, err)
	kept, err := s.SaveSnippet(snippet.CreateRequest{Title: "kept", Language: snippet.LangGo})
	require.NoError(t, err)
	pending, err := s.SaveSnippet(snippet.CreateRequest{Title: "pending", Language: snippet.LangGo})
	require.NoError(t, err)

	require.NoError(t, s.MarkSnippetSynced(gone.ID, "r-gone"))
	require.NoError(t, s.MarkSnippetSynced(kept.ID, "r-kept"))

	require.NoError(t, s.ReplaceRemoteSnippets([]snippet.Snippet{{ID: "r-kept", Title: "kept", Language: snippet.LangGo}}))

	var ids []string
	for _, sn := range s.ListSnippets() {
		ids = append(ids, sn.ID)
	}
	assert.ElementsMatch(t, []string{kept.ID, pending.ID}, ids)
	assert.Len(t, s.RemoteSnippets(), 1)
}

func TestStore_LoadLastSnippet(t *testing.T) {
	s, _ := newTestStore(t, 0)

	_, ok := s.LoadLastSnippet()
	assert.False(t, ok)

	sn, err := s.SaveSnippet(snippet.CreateRequest{Title: "a", Language: snippet.LangGo})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceRemoteSnippets([]snippet.Snippet{{ID: "r1", Title: "remote", Language: snippet.LangSQL}}))

	p := preferences.Default()
	p.LastSnippetID = sn.ID
	_, err = s.SavePreferences(p)
	require.NoError(t, err)

	v, ok := s.LoadLastSnippet()
	require.True(t, ok)
	assert.True(t, v.Ref.Equal(snippet.LocalRef(sn.ID)))

	p.LastSnippetID = "r1"
	_, err = s.SavePreferences(p)
	require.NoError(t, err)

	v, ok = s.LoadLastSnippet()
	require.True(t, ok)
	assert.Equal(t, "remote", v.Title)
}

func TestStore_QuotaExceeded(t *testing.T) {
	s, b := newTestStore(t, 1500)

	_, err := s.SaveSnippet(snippet.CreateRequest{Title: "small", Language: snippet.LangGo})
	require.NoError(t, err)

	before := s.ListSnippets()
	beforeQueue := s.GetQueue()

	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'x'
	}
	_, err = s.SaveSnippet(snippet.CreateRequest{Title: "big", Language: snippet.LangGo, Code: string(big)})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	assert.Equal(t, before, s.ListSnippets())
	assert.Equal(t, beforeQueue, s.GetQueue())

	raw, err := b.Get(KeySnippets)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "big")
}

func TestStore_CorruptData(t *testing.T) {
	b := NewMemoryBackend(0)
	require.NoError(t, b.Set(KeySnippets, []byte("{not json")))
	require.NoError(t, b.Set(KeyQueue, []byte("[")))

	s := NewStore(b, logger.Discard())

	assert.Empty(t, s.ListSnippets())
	assert.Empty(t, s.GetQueue())

	_, err := s.SaveSnippet(snippet.CreateRequest{Title: "fresh", Language: snippet.LangGo})
	require.NoError(t, err)
	assert.Len(t, s.ListSnippets(), 1)
}

func TestStore_ClearAll(t *testing.T) {
	s, _ := newTestStore(t, 0)

	_, err := s.SaveSnippet(snippet.CreateRequest{Title: "a", Language: snippet.LangGo})
	require.NoError(t, err)
	_, err = s.SavePreferences(preferences.Default())
	require.NoError(t, err)
	require.NoError(t, s.SaveSyncMeta(SyncMeta{TotalSyncs: 2}))

	require.NoError(t, s.ClearAll())

	assert.Empty(t, s.ListSnippets())
	assert.Nil(t, s.GetPreferences())
	assert.Zero(t, s.QueueLength())
	assert.Zero(t, s.SyncMeta().TotalSyncs)
}

func TestStore_MarkReplayed(t *testing.T) {
	s, _ := newTestStore(t, 0)

	sn, err := s.SaveSnippet(snippet.CreateRequest{Title: "a", Language: snippet.LangGo})
	require.NoError(t, err)
	edited, err := s.UpdateSnippet(sn.ID, snippet.UpdateRequest{Code: ptr("x")})
	require.NoError(t, err)

	require.NoError(t, s.MarkReplayed(sn.ID, "r1", sn.UpdatedAt))
	got, err := s.GetSnippet(sn.ID)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RemoteID)
	assert.Equal(t, snippet.SyncPending, got.SyncStatus, "later edit still pending")

	require.NoError(t, s.MarkReplayed(sn.ID, "", edited.UpdatedAt))
	got, err = s.GetSnippet(sn.ID)
	require.NoError(t, err)
	assert.Equal(t, snippet.SyncSynced, got.SyncStatus)
}

func TestStore_RemoteCache(t *testing.T) {
	s, _ := newTestStore(t, 0)

	r := snippet.Snippet{ID: "r1", Title: "one", Language: snippet.LangGo}
	require.NoError(t, s.PutRemoteSnippet(r))
	r.Title = "uno"
	require.NoError(t, s.PutRemoteSnippet(r))

	cache := s.RemoteSnippets()
	require.Len(t, cache, 1)
	assert.Equal(t, "uno", cache[0].Title)

	shadow, err := s.StageRemoteUpdate(r, snippet.UpdateRequest{Code: ptr("x")})
	require.NoError(t, err)

	r.Code = "y"
	require.NoError(t, s.RefreshFromRemote(shadow.ID, r))
	got, err := s.GetSnippet(shadow.ID)
	require.NoError(t, err)
	assert.Equal(t, "y", got.Code)
	assert.Equal(t, snippet.SyncSynced, got.SyncStatus)

	require.NoError(t, s.DropRemoteSnippet("r1"))
	assert.Empty(t, s.RemoteSnippets())
	assert.Empty(t, s.ListSnippets())
}
