package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
)

const (
	KeySnippets       = "bugsentinel_snippets"
	KeyPreferences    = "bugsentinel_preferences"
	KeyQueue          = "bugsentinel_sync_queue"
	KeyRemoteSnippets = "bugsentinel_remote_snippets"
	KeySyncMeta       = "bugsentinel_sync_meta"
)

// Store is the device-local durable store. Every read-modify-write runs
// under one mutex, and a mutation and its queue entry are written together.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewStore(backend Backend, log *slog.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log.With("component", "local_store"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return xid.New().String() },
	}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// ListSnippets never fails: unreadable data is logged and read as empty.
func (s *Store) ListSnippets() []snippet.LocalSnippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snippets()
}

func (s *Store) GetSnippet(localID string) (snippet.LocalSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sn := range s.snippets() {
		if sn.ID == localID {
			return sn, nil
		}
	}
	return snippet.LocalSnippet{}, fmt.Errorf("snippet %s: %w", localID, ErrNotFound)
}

// FindByRemoteID returns the local copy already tied to a remote row.
func (s *Store) FindByRemoteID(remoteID string) (snippet.LocalSnippet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sn := range s.snippets() {
		if sn.RemoteID == remoteID {
			return sn, true
		}
	}
	return snippet.LocalSnippet{}, false
}

func (s *Store) SaveSnippet(req snippet.CreateRequest) (snippet.LocalSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sn := snippet.LocalSnippet{
		ID:         snippet.LocalIDPrefix + s.newID(),
		Title:      req.Title,
		Language:   req.Language,
		Code:       req.Code,
		CreatedAt:  now,
		UpdatedAt:  now,
		SyncStatus: snippet.SyncPending,
	}

	list := append(s.snippets(), sn)
	queue := append(s.queue(), s.entry(OpCreate, &sn, nil))
	if err := s.write(list, queue); err != nil {
		return snippet.LocalSnippet{}, err
	}

	s.log.Debug("snippet saved locally", "id", sn.ID)
	return sn, nil
}

func (s *Store) UpdateSnippet(localID string, req snippet.UpdateRequest) (snippet.LocalSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snippets()
	i := indexOf(list, func(sn snippet.LocalSnippet) bool { return sn.ID == localID })
	if i < 0 {
		return snippet.LocalSnippet{}, fmt.Errorf("snippet %s: %w", localID, ErrNotFound)
	}

	updated, err := s.applyUpdate(list, i, req)
	if err != nil {
		return snippet.LocalSnippet{}, err
	}
	return updated, nil
}

// StageRemoteUpdate records an offline edit of a remote snippet. The edit
// lands on a local copy tied to base.ID, created from base if needed.
func (s *Store) StageRemoteUpdate(base snippet.Snippet, req snippet.UpdateRequest) (snippet.LocalSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snippets()
	i := indexOf(list, func(sn snippet.LocalSnippet) bool { return sn.RemoteID == base.ID })
	if i < 0 {
		list = append(list, snippet.LocalSnippet{
			ID:         snippet.LocalIDPrefix + s.newID(),
			RemoteID:   base.ID,
			Title:      base.Title,
			Language:   base.Language,
			Code:       base.Code,
			Analysis:   base.Analysis,
			CreatedAt:  base.CreatedAt,
			UpdatedAt:  base.UpdatedAt,
			SyncStatus: snippet.SyncSynced,
		})
		i = len(list) - 1
	}

	return s.applyUpdate(list, i, req)
}

func (s *Store) applyUpdate(list []snippet.LocalSnippet, i int, req snippet.UpdateRequest) (snippet.LocalSnippet, error) {
	match := list[i].Key()
	req.Apply(&list[i])
	list[i].UpdatedAt = s.now()
	list[i].SyncStatus = snippet.SyncPending

	updated := list[i]
	queue := append(s.queue(), s.entry(OpUpdate, &updated, &match))
	if err := s.write(list, queue); err != nil {
		return snippet.LocalSnippet{}, err
	}

	s.log.Debug("snippet updated locally", "id", updated.ID, "remote_id", updated.RemoteID)
	return updated, nil
}

func (s *Store) DeleteSnippet(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snippets()
	i := indexOf(list, func(sn snippet.LocalSnippet) bool { return sn.ID == localID })
	if i < 0 {
		return fmt.Errorf("snippet %s: %w", localID, ErrNotFound)
	}

	deleted := list[i]
	list = append(list[:i], list[i+1:]...)
	queue := append(s.queue(), s.entry(OpDelete, &deleted, nil))
	return s.write(list, queue)
}

// StageRemoteDelete records an offline delete of a remote snippet and
// drops it from the local copies and the remote cache.
func (s *Store) StageRemoteDelete(base snippet.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snippets()
	payload := snippet.LocalSnippet{
		RemoteID:  base.ID,
		Title:     base.Title,
		Language:  base.Language,
		CreatedAt: base.CreatedAt,
		UpdatedAt: base.UpdatedAt,
	}
	if i := indexOf(list, func(sn snippet.LocalSnippet) bool { return sn.RemoteID == base.ID }); i >= 0 {
		payload = list[i]
		list = append(list[:i], list[i+1:]...)
	}

	cache := s.remoteSnippets()
	kept := cache[:0]
	for _, r := range cache {
		if r.ID != base.ID {
			kept = append(kept, r)
		}
	}

	queue := append(s.queue(), s.entry(OpDelete, &payload, nil))
	values, err := encodeAll(map[string]any{
		KeySnippets:       list,
		KeyQueue:          queue,
		KeyRemoteSnippets: kept,
	})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// GetPreferences returns nil when nothing was saved on this device yet.
func (s *Store) GetPreferences() *LocalPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences()
}

func (s *Store) SavePreferences(p preferences.Preferences) (LocalPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lp := LocalPreferences{Preferences: p, SyncStatus: snippet.SyncPending}
	lp.UpdatedAt = s.now()

	e := s.entry(OpPreferences, nil, nil)
	e.Preferences = &lp
	values, err := encodeAll(map[string]any{
		KeyPreferences: lp,
		KeyQueue:       append(s.queue(), e),
	})
	if err != nil {
		return LocalPreferences{}, err
	}
	if err := s.setMany(values); err != nil {
		return LocalPreferences{}, err
	}
	return lp, nil
}

// CachePreferences stores preferences pulled from remote without queueing.
func (s *Store) CachePreferences(p preferences.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.preferences(); cur != nil && cur.SyncStatus != snippet.SyncSynced {
		return nil
	}
	values, err := encodeAll(map[string]any{
		KeyPreferences: LocalPreferences{Preferences: p, SyncStatus: snippet.SyncSynced},
	})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

func (s *Store) GetQueue() []QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue()
}

func (s *Store) QueueLength() int {
	return len(s.GetQueue())
}

// ClearQueue drops every entry at once. The sync engine removes entries one
// by one with RemoveQueueEntry instead.
func (s *Store) ClearQueue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(KeyQueue); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// RemoveQueueEntry drops a replayed entry. Entries appended while the
// replay was in flight are untouched.
func (s *Store) RemoveQueueEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queue()
	i := indexOf(queue, func(e QueueEntry) bool { return e.ID == id })
	if i < 0 {
		return nil
	}
	values, err := encodeAll(map[string]any{KeyQueue: append(queue[:i], queue[i+1:]...)})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// MarkSnippetSynced binds unconditionally. The sync engine uses MarkReplayed,
// which leaves snippets edited mid-replay pending.
func (s *Store) MarkSnippetSynced(localID, remoteID string) error {
	return s.mark(localID, func(sn *snippet.LocalSnippet) {
		sn.SyncStatus = snippet.SyncSynced
		if remoteID != "" {
			sn.RemoteID = remoteID
		}
	})
}

// MarkReplayed binds a local snippet to its remote row after a replay.
// The snippet only becomes synced if it was not edited after upTo.
func (s *Store) MarkReplayed(localID, remoteID string, upTo time.Time) error {
	return s.mark(localID, func(sn *snippet.LocalSnippet) {
		if remoteID != "" {
			sn.RemoteID = remoteID
		}
		if !sn.UpdatedAt.After(upTo) {
			sn.SyncStatus = snippet.SyncSynced
		}
	})
}

func (s *Store) MarkSnippetError(localID string) error {
	return s.mark(localID, func(sn *snippet.LocalSnippet) {
		sn.SyncStatus = snippet.SyncError
	})
}

func (s *Store) mark(localID string, fn func(*snippet.LocalSnippet)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snippets()
	i := indexOf(list, func(sn snippet.LocalSnippet) bool { return sn.ID == localID })
	if i < 0 {
		return nil
	}
	fn(&list[i])

	values, err := encodeAll(map[string]any{KeySnippets: list})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

func (s *Store) MarkPreferencesSynced() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.preferences()
	if p == nil {
		return nil
	}
	p.SyncStatus = snippet.SyncSynced
	values, err := encodeAll(map[string]any{KeyPreferences: p})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// RemoteSnippets is the last remote listing seen, for offline reads.
func (s *Store) RemoteSnippets() []snippet.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteSnippets()
}

// ReplaceRemoteSnippets caches a fresh remote listing and forgets synced
// local copies whose remote row no longer exists.
func (s *Store) ReplaceRemoteSnippets(remote []snippet.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		present[r.ID] = struct{}{}
	}

	list := s.snippets()
	kept := list[:0]
	for _, sn := range list {
		if _, ok := present[sn.RemoteID]; sn.SyncStatus == snippet.SyncSynced && sn.RemoteID != "" && !ok {
			continue
		}
		kept = append(kept, sn)
	}

	if remote == nil {
		remote = []snippet.Snippet{}
	}
	values, err := encodeAll(map[string]any{
		KeyRemoteSnippets: remote,
		KeySnippets:       kept,
	})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// PutRemoteSnippet records a row the remote store just acknowledged.
func (s *Store) PutRemoteSnippet(r snippet.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.remoteSnippets()
	if i := indexOf(cache, func(c snippet.Snippet) bool { return c.ID == r.ID }); i >= 0 {
		cache[i] = r
	} else {
		cache = append(cache, r)
	}

	values, err := encodeAll(map[string]any{KeyRemoteSnippets: cache})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// DropRemoteSnippet forgets a row deleted remotely, with its local copy.
func (s *Store) DropRemoteSnippet(remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.remoteSnippets()
	keptCache := cache[:0]
	for _, c := range cache {
		if c.ID != remoteID {
			keptCache = append(keptCache, c)
		}
	}
	list := s.snippets()
	keptList := list[:0]
	for _, sn := range list {
		if sn.RemoteID != remoteID {
			keptList = append(keptList, sn)
		}
	}

	values, err := encodeAll(map[string]any{
		KeyRemoteSnippets: keptCache,
		KeySnippets:       keptList,
	})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// RefreshFromRemote overwrites a local copy with the row the remote store
// returned and marks it synced. No queue entry is written.
func (s *Store) RefreshFromRemote(localID string, r snippet.Snippet) error {
	return s.mark(localID, func(sn *snippet.LocalSnippet) {
		sn.RemoteID = r.ID
		sn.Title = r.Title
		sn.Language = r.Language
		sn.Code = r.Code
		sn.Analysis = r.Analysis
		sn.UpdatedAt = r.UpdatedAt
		sn.SyncStatus = snippet.SyncSynced
	})
}

// LoadLastSnippet resolves the snippet named by the saved preferences.
func (s *Store) LoadLastSnippet() (snippet.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.preferences()
	if p == nil || p.LastSnippetID == "" {
		return snippet.View{}, false
	}
	ref, err := snippet.ParseRef(p.LastSnippetID)
	if err != nil {
		return snippet.View{}, false
	}

	for _, sn := range s.snippets() {
		if (ref.IsLocal() && sn.ID == ref.ID()) || (ref.IsRemote() && sn.RemoteID == ref.ID()) {
			return sn.View(), true
		}
	}
	if ref.IsRemote() {
		for _, r := range s.remoteSnippets() {
			if r.ID == ref.ID() {
				return r.View(), true
			}
		}
	}
	return snippet.View{}, false
}

func (s *Store) SyncMeta() SyncMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m SyncMeta
	s.load(KeySyncMeta, &m)
	return m
}

func (s *Store) SaveSyncMeta(m SyncMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := encodeAll(map[string]any{KeySyncMeta: m})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

// ClearAll wipes everything this device holds for the signed-in user.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Delete(KeySnippets, KeyPreferences, KeyQueue, KeyRemoteSnippets, KeySyncMeta)
	if err != nil {
		return fmt.Errorf("clear local data: %w", err)
	}
	s.log.Info("local data cleared")
	return nil
}

func (s *Store) entry(kind OpKind, sn *snippet.LocalSnippet, match *snippet.Key) QueueEntry {
	return QueueEntry{
		ID:         s.newID(),
		Kind:       kind,
		Snippet:    sn,
		Match:      match,
		EnqueuedAt: s.now(),
	}
}

func (s *Store) snippets() []snippet.LocalSnippet {
	var list []snippet.LocalSnippet
	s.load(KeySnippets, &list)
	return list
}

func (s *Store) queue() []QueueEntry {
	var q []QueueEntry
	s.load(KeyQueue, &q)
	return q
}

func (s *Store) remoteSnippets() []snippet.Snippet {
	var list []snippet.Snippet
	s.load(KeyRemoteSnippets, &list)
	return list
}

func (s *Store) preferences() *LocalPreferences {
	var p LocalPreferences
	if !s.load(KeyPreferences, &p) {
		return nil
	}
	return &p
}

// load decodes key into v and reports whether a usable value was found.
func (s *Store) load(key string, v any) bool {
	raw, err := s.backend.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		s.log.Error("failed to read local data", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.log.Error("corrupt local data, treating as empty", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) write(list []snippet.LocalSnippet, queue []QueueEntry) error {
	values, err := encodeAll(map[string]any{KeySnippets: list, KeyQueue: queue})
	if err != nil {
		return err
	}
	return s.setMany(values)
}

func (s *Store) setMany(values map[string][]byte) error {
	if err := s.backend.SetMany(values); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.log.Warn("local storage is full, change was not saved")
		}
		return fmt.Errorf("persist local data: %w", err)
	}
	return nil
}

func encodeAll(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

func indexOf[T any](items []T, pred func(T) bool) int {
	for i, it := range items {
		if pred(it) {
			return i
		}
	}
	return -1
}
