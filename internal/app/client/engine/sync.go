package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bugsentinel/internal/app/client/gateway"
	"bugsentinel/internal/app/client/local"
	"bugsentinel/internal/domain/snippet"
)

var errMalformedEntry = errors.New("malformed queue entry")

func (e *Engine) run(ctx context.Context, res *Result) error {
	if e.remote.CurrentUser() == nil {
		return ErrNoSession
	}

	transient := e.drain(ctx, res)
	if err := ctx.Err(); err != nil {
		return err
	}

	remote, err := e.remote.GetSnippets(ctx)
	if err != nil {
		return sessionErr(fmt.Errorf("pull snippets: %w", err))
	}
	res.Downloaded = len(remote)
	if err := e.store.ReplaceRemoteSnippets(remote); err != nil {
		e.log.Warn("failed to cache remote snippets", "error", err)
	}

	prefs, err := e.remote.GetPreferences(ctx)
	if err != nil {
		return sessionErr(fmt.Errorf("pull preferences: %w", err))
	}
	if prefs != nil {
		if lp := e.store.GetPreferences(); lp == nil || lp.SyncStatus == snippet.SyncSynced {
			if err := e.store.CachePreferences(*prefs); err != nil {
				e.log.Warn("failed to cache remote preferences", "error", err)
			}
			if prefs.Theme.Valid() {
				e.state.SetTheme(prefs.Theme)
			}
		}
	}

	e.state.SetSnippets(Merge(e.store.ListSnippets(), remote, e.cfg.MatchWindow))

	if transient > 0 {
		return fmt.Errorf("%w: %d transient failures", ErrIncomplete, transient)
	}
	return nil
}

// sessionErr marks failures a retry cannot fix.
func sessionErr(err error) error {
	if errors.Is(err, gateway.ErrNotAuthenticated) || errors.Is(err, gateway.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	return err
}

// drain replays the queue in order and returns the number of entries that
// failed for transient reasons. A failed entry stays queued and the pass
// moves on to the entries of other snippets. Later entries for the same
// snippet are skipped until the next pass, so an older update can never
// land after a newer one. Only rejected entries mark their snippet as
// errored; transient failures leave it pending.
func (e *Engine) drain(ctx context.Context, res *Result) int {
	queue := e.store.GetQueue()
	if len(queue) == 0 {
		return 0
	}

	last := make(map[string]int, len(queue))
	lastPrefs := -1
	for i, entry := range queue {
		if id := entry.LocalID(); id != "" {
			last[id] = i
		}
		if entry.Kind == local.OpPreferences {
			lastPrefs = i
		}
	}

	r := &replayer{
		engine:  e,
		remote:  newRemoteSet(e.remote),
		created: make(map[string]string),
	}
	blocked := make(map[string]bool)
	transient := 0

	for i, entry := range queue {
		if ctx.Err() != nil {
			return transient
		}

		id := entry.LocalID()
		if id != "" && blocked[id] {
			res.Skipped++
			continue
		}

		orphan, err := r.replay(ctx, entry, i == last[id], i == lastPrefs)
		if err != nil {
			isTransient := gateway.IsTransient(err)
			if isTransient {
				transient++
			}
			res.Failed++
			res.Errors = append(res.Errors, EntryError{
				EntryID:   entry.ID,
				Kind:      entry.Kind,
				LocalID:   id,
				Error:     err.Error(),
				Transient: isTransient,
			})
			e.log.Warn("queue entry failed",
				"entry_id", entry.ID,
				"kind", entry.Kind,
				"local_id", id,
				"error", err,
			)
			if id != "" {
				blocked[id] = true
			}
			if id != "" && !isTransient {
				if err := e.store.MarkSnippetError(id); err != nil {
					e.log.Warn("failed to mark snippet", "local_id", id, "error", err)
				}
			}
			continue
		}

		if orphan {
			res.Orphaned++
		} else {
			res.Uploaded++
		}
		if err := e.store.RemoveQueueEntry(entry.ID); err != nil {
			e.log.Error("failed to remove replayed entry", "entry_id", entry.ID, "error", err)
		}
	}

	return transient
}

type replayer struct {
	engine  *Engine
	remote  *remoteSet
	created map[string]string
}

// replay sends one entry. orphan is true when the remote counterpart no
// longer exists, so there is nothing left to apply.
func (r *replayer) replay(ctx context.Context, entry local.QueueEntry, lastForSnippet, lastPrefs bool) (orphan bool, err error) {
	e := r.engine

	switch entry.Kind {
	case local.OpCreate:
		sn := entry.Snippet
		if sn == nil {
			return false, errMalformedEntry
		}
		if cur, err := e.store.GetSnippet(sn.ID); err == nil && cur.RemoteID != "" {
			r.created[sn.ID] = cur.RemoteID
			return false, r.markReplayed(sn, cur.RemoteID, lastForSnippet)
		}

		created, err := e.remote.CreateSnippet(ctx, snippet.CreateRequest{
			Title:    sn.Title,
			Language: sn.Language,
			Code:     sn.Code,
			Analysis: sn.Analysis,
			ClientID: sn.ID,
		})
		if err != nil {
			return false, err
		}
		if created.ID == "" {
			return false, fmt.Errorf("%w: create returned no id", errMalformedEntry)
		}
		r.created[sn.ID] = created.ID
		r.remote.put(created)
		return false, r.markReplayed(sn, created.ID, lastForSnippet)

	case local.OpUpdate:
		sn := entry.Snippet
		if sn == nil {
			return false, errMalformedEntry
		}
		remoteID, err := r.resolve(ctx, entry)
		if err != nil {
			return false, err
		}
		if remoteID == "" {
			e.log.Warn("no remote snippet to update", "local_id", sn.ID, "title", sn.Title)
			return true, r.markReplayed(sn, "", lastForSnippet)
		}

		analysis := sn.Analysis
		updated, err := e.remote.UpdateSnippet(ctx, remoteID, snippet.UpdateRequest{
			Title:    &sn.Title,
			Language: &sn.Language,
			Code:     &sn.Code,
			Analysis: &analysis,
		})
		if gateway.IsNotFound(err) {
			r.remote.remove(remoteID)
			return true, r.markReplayed(sn, "", lastForSnippet)
		}
		if err != nil {
			return false, err
		}
		r.remote.put(updated)
		return false, r.markReplayed(sn, remoteID, lastForSnippet)

	case local.OpDelete:
		if entry.Snippet == nil {
			return false, errMalformedEntry
		}
		remoteID, err := r.resolve(ctx, entry)
		if err != nil {
			return false, err
		}
		if remoteID == "" {
			return true, nil
		}
		err = e.remote.DeleteSnippet(ctx, remoteID)
		if gateway.IsNotFound(err) {
			err = nil
		}
		if err != nil {
			return false, err
		}
		r.remote.remove(remoteID)
		return false, nil

	case local.OpPreferences:
		p := entry.Preferences
		if p == nil {
			return false, errMalformedEntry
		}
		prefs := p.Preferences
		prefs.LastSnippetID = r.translateLastSnippet(prefs.LastSnippetID)
		if _, err := e.remote.UpsertPreferences(ctx, prefs.Request()); err != nil {
			return false, err
		}
		if lastPrefs {
			if err := e.store.MarkPreferencesSynced(); err != nil {
				e.log.Warn("failed to mark preferences synced", "error", err)
			}
		}
		return false, nil
	}

	return false, fmt.Errorf("%w: unknown kind %q", errMalformedEntry, entry.Kind)
}

func (r *replayer) markReplayed(sn *snippet.LocalSnippet, remoteID string, last bool) error {
	if sn.ID == "" {
		return nil
	}
	upTo := time.Time{}
	if last {
		upTo = sn.UpdatedAt
	}
	if err := r.engine.store.MarkReplayed(sn.ID, remoteID, upTo); err != nil {
		r.engine.log.Warn("failed to mark snippet replayed", "local_id", sn.ID, "error", err)
	}
	return nil
}

// resolve finds the remote row an update or delete applies to. Known
// bindings win over content matching. An empty id means no counterpart.
func (r *replayer) resolve(ctx context.Context, entry local.QueueEntry) (string, error) {
	sn := entry.Snippet
	if sn.ID != "" {
		if cur, err := r.engine.store.GetSnippet(sn.ID); err == nil && cur.RemoteID != "" {
			return cur.RemoteID, nil
		}
		if id, ok := r.created[sn.ID]; ok {
			return id, nil
		}
	}
	if sn.RemoteID != "" {
		return sn.RemoteID, nil
	}

	list, err := r.remote.list(ctx)
	if err != nil {
		return "", err
	}
	if entry.Match != nil {
		if m, ok := FindRemoteMatch(list, *entry.Match); ok {
			return m.ID, nil
		}
	}
	if m, ok := FindRemoteMatch(list, sn.Key()); ok {
		return m.ID, nil
	}
	return "", nil
}

// translateLastSnippet rewrites a local snippet id to its remote id once known.
func (r *replayer) translateLastSnippet(id string) string {
	if !strings.HasPrefix(id, snippet.LocalIDPrefix) {
		return id
	}
	if remoteID, ok := r.created[id]; ok {
		return remoteID
	}
	if cur, err := r.engine.store.GetSnippet(id); err == nil && cur.RemoteID != "" {
		return cur.RemoteID
	}
	return id
}

// remoteSet is the remote listing, fetched at most once per pass and kept
// current as entries are replayed.
type remoteSet struct {
	remote Remote
	items  []snippet.Snippet
	gone   map[string]bool
	loaded bool
}

func newRemoteSet(remote Remote) *remoteSet {
	return &remoteSet{remote: remote, gone: make(map[string]bool)}
}

func (s *remoteSet) list(ctx context.Context) ([]snippet.Snippet, error) {
	if s.loaded {
		return s.items, nil
	}
	items, err := s.remote.GetSnippets(ctx)
	if err != nil {
		return nil, err
	}

	seen := s.items
	s.items = make([]snippet.Snippet, 0, len(items)+len(seen))
	for _, sn := range items {
		if !s.gone[sn.ID] {
			s.items = append(s.items, sn)
		}
	}
	for _, sn := range seen {
		s.put(sn)
	}
	s.loaded = true
	return s.items, nil
}

func (s *remoteSet) put(sn snippet.Snippet) {
	delete(s.gone, sn.ID)
	for i := range s.items {
		if s.items[i].ID == sn.ID {
			s.items[i] = sn
			return
		}
	}
	s.items = append(s.items, sn)
}

func (s *remoteSet) remove(id string) {
	s.gone[id] = true
	kept := s.items[:0]
	for _, sn := range s.items {
		if sn.ID != id {
			kept = append(kept, sn)
		}
	}
	s.items = kept
}
