// Package state holds the in-memory application state the CLI renders from.
package state

import (
	"sync"
	"time"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

type Connection struct {
	IsOnline       bool       `json:"is_online" yaml:"is_online"`
	SyncInProgress bool       `json:"sync_in_progress" yaml:"sync_in_progress"`
	PendingChanges int        `json:"pending_changes" yaml:"pending_changes"`
	LastSync       *time.Time `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
}

type State struct {
	User            *user.User
	Snippets        []snippet.View
	CurrentSnippet  *snippet.View
	AnalysisResults []snippet.Issue
	IsAnalyzing     bool
	Theme           preferences.Theme
	SidebarOpen     bool
	Connection      Connection
}

func (s State) IsAuthenticated() bool { return s.User != nil }

// Store is the single owner of State. Listeners run after each mutation,
// outside the lock, with a snapshot.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func New() *Store {
	return &Store{
		state: State{
			Snippets:    []snippet.View{},
			Theme:       preferences.ThemeLight,
			SidebarOpen: true,
		},
		listeners: make(map[int]func(State)),
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) SetUser(u *user.User) {
	s.update(func(st *State) {
		if u == nil {
			st.User = nil
			return
		}
		cp := *u
		st.User = &cp
	})
}

// Logout drops the user and everything derived from their data.
func (s *Store) Logout() {
	s.update(func(st *State) {
		st.User = nil
		st.Snippets = []snippet.View{}
		st.CurrentSnippet = nil
		st.AnalysisResults = nil
	})
}

func (s *Store) SetSnippets(list []snippet.View) {
	s.update(func(st *State) {
		st.Snippets = append([]snippet.View{}, list...)
	})
}

func (s *Store) AddSnippet(v snippet.View) {
	s.update(func(st *State) {
		st.Snippets = append(st.Snippets, v)
	})
}

// UpdateSnippet replaces the snippet with ref, including the current one.
func (s *Store) UpdateSnippet(ref snippet.Ref, v snippet.View) {
	s.update(func(st *State) {
		for i := range st.Snippets {
			if st.Snippets[i].Ref.Equal(ref) {
				st.Snippets[i] = v
			}
		}
		if st.CurrentSnippet != nil && st.CurrentSnippet.Ref.Equal(ref) {
			cp := v
			st.CurrentSnippet = &cp
		}
	})
}

func (s *Store) DeleteSnippet(ref snippet.Ref) {
	s.update(func(st *State) {
		kept := st.Snippets[:0]
		for _, v := range st.Snippets {
			if !v.Ref.Equal(ref) {
				kept = append(kept, v)
			}
		}
		st.Snippets = kept
		if st.CurrentSnippet != nil && st.CurrentSnippet.Ref.Equal(ref) {
			st.CurrentSnippet = nil
		}
	})
}

func (s *Store) SetCurrentSnippet(v *snippet.View) {
	s.update(func(st *State) {
		if v == nil {
			st.CurrentSnippet = nil
			return
		}
		cp := *v
		st.CurrentSnippet = &cp
	})
}

func (s *Store) SetTheme(t preferences.Theme) {
	s.update(func(st *State) { st.Theme = t })
}

func (s *Store) SetAnalysisResults(issues []snippet.Issue) {
	s.update(func(st *State) {
		st.AnalysisResults = append([]snippet.Issue(nil), issues...)
	})
}

func (s *Store) SetAnalyzing(v bool) {
	s.update(func(st *State) { st.IsAnalyzing = v })
}

func (s *Store) SetSidebarOpen(v bool) {
	s.update(func(st *State) { st.SidebarOpen = v })
}

func (s *Store) SetConnection(c Connection) {
	s.update(func(st *State) { st.Connection = c })
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Snippets = make([]snippet.View, len(s.Snippets))
	for i, v := range s.Snippets {
		out.Snippets[i] = cloneView(v)
	}
	if s.CurrentSnippet != nil {
		v := cloneView(*s.CurrentSnippet)
		out.CurrentSnippet = &v
	}
	if s.AnalysisResults != nil {
		out.AnalysisResults = append([]snippet.Issue(nil), s.AnalysisResults...)
	}
	if s.Connection.LastSync != nil {
		t := *s.Connection.LastSync
		out.Connection.LastSync = &t
	}
	return out
}

func cloneView(v snippet.View) snippet.View {
	if v.Analysis != nil {
		v.Analysis = append([]snippet.Issue(nil), v.Analysis...)
	}
	return v
}
