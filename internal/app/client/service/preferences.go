package service

import (
	"context"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
)

func (s *Service) GetPreferences(ctx context.Context) Result[preferences.Preferences] {
	var fetched *preferences.Preferences
	if s.canReachRemote() {
		p, err := s.remote.GetPreferences(ctx)
		switch {
		case err != nil:
			s.log.Warn("remote preferences unavailable", "error", err)
		case p != nil:
			fetched = p
			if err := s.store.CachePreferences(*p); err != nil {
				s.log.Warn("cache preferences", "error", err)
			}
		}
	}

	p := preferences.Default()
	if lp := s.store.GetPreferences(); lp != nil {
		p = lp.Preferences
	} else if fetched != nil {
		p = *fetched
	}

	s.state.SetTheme(p.Theme)
	return ok(p)
}

// SavePreferences writes req over the current preferences. The remote store
// is tried first unless an earlier local change is still queued.
func (s *Service) SavePreferences(ctx context.Context, req preferences.UpsertRequest) Result[preferences.Preferences] {
	if err := req.Validate(); err != nil {
		return fail[preferences.Preferences](err)
	}

	cur := s.store.GetPreferences()
	p := preferences.Default()
	if cur != nil {
		p = cur.Preferences
	}
	req.Apply(&p)

	pending := cur != nil && cur.SyncStatus != snippet.SyncSynced
	if !pending && s.canReachRemote() {
		if remote, ok := s.remoteLastSnippet(p.LastSnippetID); ok {
			out := p
			out.LastSnippetID = remote
			saved, err := s.remote.UpsertPreferences(ctx, out.Request())
			if err == nil {
				if err := s.store.CachePreferences(saved); err != nil {
					s.log.Warn("cache preferences", "error", err)
				}
				s.state.SetTheme(saved.Theme)
				return Result[preferences.Preferences]{Data: saved}
			}
			s.log.Warn("remote preferences save failed, saving locally", "error", err)
		}
	}

	saved, err := s.store.SavePreferences(p)
	if err != nil {
		return fail[preferences.Preferences](err)
	}
	s.state.SetTheme(saved.Theme)
	return Result[preferences.Preferences]{Data: saved.Preferences}
}

// remoteLastSnippet maps a last-snippet id into the remote id space. It
// fails for local snippets that have not been uploaded yet.
func (s *Service) remoteLastSnippet(id string) (string, bool) {
	if id == "" {
		return "", true
	}
	ref, err := snippet.ParseRef(id)
	if err != nil {
		return "", false
	}
	if ref.IsRemote() {
		return id, true
	}
	sn, err := s.store.GetSnippet(ref.ID())
	if err != nil || sn.RemoteID == "" {
		return "", false
	}
	return sn.RemoteID, true
}

func (s *Service) SetTheme(ctx context.Context, theme preferences.Theme) Result[preferences.Preferences] {
	return s.SavePreferences(ctx, preferences.UpsertRequest{Theme: &theme})
}

// SetCurrentSnippet selects ref and remembers it as the last snippet.
// A zero ref clears the selection.
func (s *Service) SetCurrentSnippet(ctx context.Context, ref snippet.Ref) Result[*snippet.View] {
	if ref.IsZero() {
		s.state.SetCurrentSnippet(nil)
		s.rememberLast(ctx, "")
		return ok[*snippet.View](nil)
	}

	v, found := s.find(ref)
	if !found {
		return fail[*snippet.View](snippet.ErrNotFound)
	}
	s.state.SetCurrentSnippet(&v)
	s.rememberLast(ctx, ref.ID())
	return ok(&v)
}

func (s *Service) rememberLast(ctx context.Context, id string) {
	if res := s.SavePreferences(ctx, preferences.UpsertRequest{LastSnippetID: &id}); !res.OK() {
		s.log.Warn("remember last snippet", "id", id, "error", res.Error)
	}
}

// LoadLastSnippet reopens the snippet recorded in the preferences, if any.
func (s *Service) LoadLastSnippet(_ context.Context) Result[*snippet.View] {
	v, found := s.store.LoadLastSnippet()
	if !found {
		lp := s.store.GetPreferences()
		if lp == nil || lp.LastSnippetID == "" {
			return ok[*snippet.View](nil)
		}
		ref, err := snippet.ParseRef(lp.LastSnippetID)
		if err != nil {
			return ok[*snippet.View](nil)
		}
		if v, found = s.find(ref); !found {
			return ok[*snippet.View](nil)
		}
	}

	s.state.SetCurrentSnippet(&v)
	return ok(&v)
}
