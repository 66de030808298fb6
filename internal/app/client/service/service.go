// Package service is the façade the CLI talks to. Every operation tries the
// remote store first when it can and falls back to the local store, so a
// caller always gets a Result and never a Go error.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/client/ai"
	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/app/client/local"
	"bugsentinel/internal/app/client/state"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrPendingChanges   = errors.New("unsynced changes would be lost")
	ErrAIUnavailable    = errors.New("code analysis is not configured")
)

// Result is the uniform return shape of every façade operation.
type Result[T any] struct {
	Data  T      `json:"data" yaml:"data"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r Result[T]) OK() bool { return r.Error == "" }

// Err turns the message back into an error for callers that want one.
func (r Result[T]) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

func ok[T any](v T) Result[T] { return Result[T]{Data: v} }

func fail[T any](err error) Result[T] {
	return Result[T]{Error: err.Error()}
}

// Remote is the gateway surface the façade needs.
type Remote interface {
	engine.Remote
	SignUp(ctx context.Context, creds user.Credentials) (user.User, error)
	SignIn(ctx context.Context, creds user.Credentials) (user.User, error)
	SignOut(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*user.User, error)
	OnSessionChange(fn func(*user.User)) (unsubscribe func())
}

// Syncer reports connectivity and runs sync passes.
type Syncer interface {
	IsOnline() bool
	SyncNow(ctx context.Context) (*engine.Result, error)
}

// Analyzer runs AI code analysis.
type Analyzer interface {
	Available() bool
	AnalyzeCode(ctx context.Context, req ai.AnalyzeRequest) ([]snippet.Issue, error)
}

type Service struct {
	store  *local.Store
	remote Remote
	sync   Syncer
	state  *state.Store
	ai     Analyzer
	log    *slog.Logger
	now    func() time.Time
	window time.Duration

	unsubscribe func()
}

func New(store *local.Store, remote Remote, sync Syncer, st *state.Store, analyzer Analyzer, log *slog.Logger) *Service {
	s := &Service{
		store:  store,
		remote: remote,
		sync:   sync,
		state:  st,
		ai:     analyzer,
		log:    log.With("component", "snippet_service"),
		now:    time.Now,
		window: engine.DefaultMatchWindow,
	}

	if u := remote.CurrentUser(); u != nil {
		st.SetUser(u)
	}
	s.unsubscribe = remote.OnSessionChange(st.SetUser)
	return s
}

// Close detaches the session listener.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Service) currentUser() *user.User {
	if u := s.state.Snapshot().User; u != nil {
		return u
	}
	return s.remote.CurrentUser()
}

// canReachRemote is true when a remote call is worth attempting.
func (s *Service) canReachRemote() bool {
	return s.sync.IsOnline() && s.remote.CurrentUser() != nil
}

func (s *Service) CreateSnippet(ctx context.Context, req snippet.CreateRequest) Result[snippet.View] {
	if s.currentUser() == nil {
		return fail[snippet.View](ErrNotAuthenticated)
	}
	if req.Title == "" {
		req.Title = snippet.DefaultTitle(req.Language, s.now())
	}
	if err := req.Validate(); err != nil {
		return fail[snippet.View](err)
	}

	if s.canReachRemote() {
		created, err := s.remote.CreateSnippet(ctx, req)
		if err == nil {
			s.cacheRemote(created)
			v := created.View()
			s.state.AddSnippet(v)
			return ok(v)
		}
		s.log.Warn("remote create failed, saving locally", "error", err)
	}

	saved, err := s.store.SaveSnippet(req)
	if err != nil {
		s.log.Error("local create failed", "error", err)
		return fail[snippet.View](err)
	}

	v := saved.View()
	s.state.AddSnippet(v)
	return ok(v)
}

func (s *Service) UpdateSnippet(ctx context.Context, ref snippet.Ref, req snippet.UpdateRequest) Result[snippet.View] {
	if err := req.Validate(); err != nil {
		return fail[snippet.View](err)
	}
	if req.IsEmpty() {
		return fail[snippet.View](fmt.Errorf("%w: nothing to update", snippet.ErrInvalidInput))
	}

	var (
		v   snippet.View
		err error
	)
	if ref.IsLocal() {
		v, err = s.updateLocal(ctx, ref.ID(), req)
	} else {
		v, err = s.updateRemote(ctx, ref.ID(), req)
	}
	if err != nil {
		return fail[snippet.View](err)
	}

	s.state.UpdateSnippet(ref, v)
	return ok(v)
}

func (s *Service) updateLocal(ctx context.Context, localID string, req snippet.UpdateRequest) (snippet.View, error) {
	sn, err := s.store.GetSnippet(localID)
	if err != nil {
		return snippet.View{}, err
	}

	// Anything still queued for this snippet must replay first.
	if sn.RemoteID != "" && sn.SyncStatus == snippet.SyncSynced && s.canReachRemote() {
		updated, err := s.remote.UpdateSnippet(ctx, sn.RemoteID, req)
		if err == nil {
			s.cacheRemote(updated)
			if err := s.store.RefreshFromRemote(localID, updated); err != nil {
				s.log.Warn("refresh local copy", "local_id", localID, "error", err)
			}
			refreshed, err := s.store.GetSnippet(localID)
			if err != nil {
				return updated.View(), nil
			}
			return refreshed.View(), nil
		}
		s.log.Warn("remote update failed, saving locally", "local_id", localID, "error", err)
	}

	saved, err := s.store.UpdateSnippet(localID, req)
	if err != nil {
		return snippet.View{}, err
	}
	return saved.View(), nil
}

func (s *Service) updateRemote(ctx context.Context, remoteID string, req snippet.UpdateRequest) (snippet.View, error) {
	shadow, hasShadow := s.store.FindByRemoteID(remoteID)
	if hasShadow && shadow.SyncStatus != snippet.SyncSynced {
		return s.updateLocal(ctx, shadow.ID, req)
	}

	if s.canReachRemote() {
		updated, err := s.remote.UpdateSnippet(ctx, remoteID, req)
		if err == nil {
			s.cacheRemote(updated)
			if hasShadow {
				if err := s.store.RefreshFromRemote(shadow.ID, updated); err != nil {
					s.log.Warn("refresh local copy", "local_id", shadow.ID, "error", err)
				}
			}
			return updated.View(), nil
		}
		s.log.Warn("remote update failed, saving locally", "remote_id", remoteID, "error", err)
	}

	base, found := s.remoteBase(remoteID)
	if !found {
		return snippet.View{}, snippet.ErrNotFound
	}
	staged, err := s.store.StageRemoteUpdate(base, req)
	if err != nil {
		return snippet.View{}, err
	}
	return staged.View(), nil
}

func (s *Service) DeleteSnippet(ctx context.Context, ref snippet.Ref) Result[bool] {
	// The state store may show either side of a bound pair.
	drop := []snippet.Ref{ref}
	if ref.IsLocal() {
		if sn, err := s.store.GetSnippet(ref.ID()); err == nil && sn.RemoteID != "" {
			drop = append(drop, snippet.RemoteRef(sn.RemoteID))
		}
	} else if sn, found := s.store.FindByRemoteID(ref.ID()); found {
		drop = append(drop, snippet.LocalRef(sn.ID))
	}

	var err error
	if ref.IsLocal() {
		err = s.deleteLocal(ctx, ref.ID())
	} else {
		err = s.deleteRemote(ctx, ref.ID())
	}
	if err != nil {
		return fail[bool](err)
	}

	for _, r := range drop {
		s.state.DeleteSnippet(r)
	}
	return ok(true)
}

func (s *Service) deleteLocal(ctx context.Context, localID string) error {
	sn, err := s.store.GetSnippet(localID)
	if err != nil {
		return err
	}

	if sn.RemoteID != "" && sn.SyncStatus == snippet.SyncSynced && s.canReachRemote() {
		err := s.remote.DeleteSnippet(ctx, sn.RemoteID)
		if err == nil {
			return s.store.DropRemoteSnippet(sn.RemoteID)
		}
		s.log.Warn("remote delete failed, deleting locally", "local_id", localID, "error", err)
	}

	return s.store.DeleteSnippet(localID)
}

func (s *Service) deleteRemote(ctx context.Context, remoteID string) error {
	if shadow, ok := s.store.FindByRemoteID(remoteID); ok && shadow.SyncStatus != snippet.SyncSynced {
		return s.deleteLocal(ctx, shadow.ID)
	}

	if s.canReachRemote() {
		err := s.remote.DeleteSnippet(ctx, remoteID)
		if err == nil {
			return s.store.DropRemoteSnippet(remoteID)
		}
		s.log.Warn("remote delete failed, deleting locally", "remote_id", remoteID, "error", err)
	}

	base, found := s.remoteBase(remoteID)
	if !found {
		base = snippet.Snippet{ID: remoteID}
	}
	return s.store.StageRemoteDelete(base)
}

func (s *Service) GetSnippet(_ context.Context, ref snippet.Ref) Result[snippet.View] {
	v, found := s.find(ref)
	if !found {
		return fail[snippet.View](snippet.ErrNotFound)
	}
	return ok(v)
}

// find looks a snippet up in the state store, then in local storage.
func (s *Service) find(ref snippet.Ref) (snippet.View, bool) {
	for _, v := range s.state.Snapshot().Snippets {
		if v.Ref.Equal(ref) {
			return v, true
		}
	}

	if ref.IsLocal() {
		sn, err := s.store.GetSnippet(ref.ID())
		if err != nil {
			return snippet.View{}, false
		}
		return sn.View(), true
	}

	if sn, ok := s.store.FindByRemoteID(ref.ID()); ok {
		return sn.View(), true
	}
	if base, ok := s.remoteBase(ref.ID()); ok {
		return base.View(), true
	}
	return snippet.View{}, false
}

// remoteBase finds the last known remote row for id.
func (s *Service) remoteBase(remoteID string) (snippet.Snippet, bool) {
	for _, r := range s.store.RemoteSnippets() {
		if r.ID == remoteID {
			return r, true
		}
	}
	for _, v := range s.state.Snapshot().Snippets {
		if v.Ref.IsRemote() && v.Ref.ID() == remoteID {
			return snippet.Snippet{
				ID:        remoteID,
				Title:     v.Title,
				Language:  v.Language,
				Code:      v.Code,
				Analysis:  v.Analysis,
				CreatedAt: v.CreatedAt,
				UpdatedAt: v.UpdatedAt,
			}, true
		}
	}
	return snippet.Snippet{}, false
}

func (s *Service) cacheRemote(r snippet.Snippet) {
	if err := s.store.PutRemoteSnippet(r); err != nil {
		s.log.Warn("cache remote snippet", "remote_id", r.ID, "error", err)
	}
}
