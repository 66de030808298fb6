package service

import (
	"context"
	"fmt"

	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/domain/user"
)

func (s *Service) SignUp(ctx context.Context, creds user.Credentials) Result[user.User] {
	return s.authenticate(ctx, creds, s.remote.SignUp)
}

func (s *Service) SignIn(ctx context.Context, creds user.Credentials) Result[user.User] {
	return s.authenticate(ctx, creds, s.remote.SignIn)
}

func (s *Service) authenticate(ctx context.Context, creds user.Credentials,
	call func(context.Context, user.Credentials) (user.User, error)) Result[user.User] {
	if !s.sync.IsOnline() {
		return fail[user.User](engine.ErrOffline)
	}

	u, err := call(ctx, creds)
	if err != nil {
		s.log.Info("authentication failed", "email", creds.Email, "error", err)
		return fail[user.User](err)
	}

	s.state.SetUser(&u)
	return ok(u)
}

// SignOut ends the session and wipes local data. Pending changes get one
// last sync attempt; if some remain the wipe is refused unless force is set.
func (s *Service) SignOut(ctx context.Context, force bool) Result[bool] {
	pending := s.store.QueueLength()
	if pending > 0 && s.sync.IsOnline() {
		if _, err := s.sync.SyncNow(ctx); err != nil {
			s.log.Warn("final sync before sign out failed", "error", err)
		}
		pending = s.store.QueueLength()
	}
	if pending > 0 && !force {
		return fail[bool](fmt.Errorf("%w: %d pending", ErrPendingChanges, pending))
	}

	if err := s.remote.SignOut(ctx); err != nil {
		s.log.Warn("remote sign out failed", "error", err)
	}
	if err := s.store.ClearAll(); err != nil {
		s.log.Error("clear local data", "error", err)
		return fail[bool](err)
	}

	s.state.Logout()
	if pending > 0 {
		s.log.Warn("signed out with unsynced changes discarded", "pending", pending)
	}
	return ok(true)
}

// CurrentUser returns the signed-in user, revalidated against the remote
// store when reachable.
func (s *Service) CurrentUser(ctx context.Context) Result[*user.User] {
	u := s.remote.CurrentUser()
	if u != nil && s.sync.IsOnline() {
		fresh, err := s.remote.GetCurrentUser(ctx)
		if err == nil {
			u = fresh
		} else {
			s.log.Debug("could not revalidate session", "error", err)
		}
	}

	s.state.SetUser(u)
	return ok(u)
}
