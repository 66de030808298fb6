package service

import (
	"context"
	"sync"

	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/domain/snippet"
)

// Loading is the handle returned by LoadSnippets. Local holds the list
// that was available immediately; Wait blocks for the remote-merged one.
type Loading struct {
	Local Result[[]snippet.View]

	done   chan struct{}
	once   sync.Once
	remote Result[[]snippet.View]
}

func (l *Loading) finish(r Result[[]snippet.View]) {
	l.once.Do(func() {
		l.remote = r
		close(l.done)
	})
}

// Wait returns the merged list, or the local one if ctx ends first.
func (l *Loading) Wait(ctx context.Context) Result[[]snippet.View] {
	select {
	case <-l.done:
		return l.remote
	case <-ctx.Done():
		return Result[[]snippet.View]{Data: l.Local.Data, Error: ctx.Err().Error()}
	}
}

// LoadSnippets publishes the local view at once and refreshes it from the
// remote store in the background when online.
func (s *Service) LoadSnippets(ctx context.Context) *Loading {
	local := engine.Merge(s.store.ListSnippets(), s.store.RemoteSnippets(), s.window)
	s.state.SetSnippets(local)

	l := &Loading{
		Local: ok(local),
		done:  make(chan struct{}),
	}

	if !s.canReachRemote() {
		l.finish(l.Local)
		return l
	}

	go func() {
		remote, err := s.remote.GetSnippets(ctx)
		if err != nil {
			s.log.Warn("remote snippets unavailable, showing local data", "error", err)
			l.finish(l.Local)
			return
		}

		if err := s.store.ReplaceRemoteSnippets(remote); err != nil {
			s.log.Warn("cache remote snippets", "error", err)
		}
		merged := engine.Merge(s.store.ListSnippets(), remote, s.window)
		s.state.SetSnippets(merged)
		l.finish(ok(merged))
	}()
	return l
}
