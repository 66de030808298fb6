package engine

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"bugsentinel/internal/app/client/gateway"
	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

// fakeRemote is an in-memory remote store with the server's semantics.
type fakeRemote struct {
	mu      sync.Mutex
	user    *user.User
	rows    map[string]snippet.Snippet
	prefs   *preferences.Preferences
	nextID  int
	creates int
	now     time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		user: &user.User{ID: "u1", Email: "dev@example.com"},
		rows: make(map[string]snippet.Snippet),
		now:  time.Now().UTC(),
	}
}

func (f *fakeRemote) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeRemote) CurrentUser() *user.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeRemote) HealthCheck(context.Context) error { return nil }

func (f *fakeRemote) GetSnippets(context.Context) ([]snippet.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]snippet.Snippet, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeRemote) CreateSnippet(_ context.Context, req snippet.CreateRequest) (snippet.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if req.ClientID != "" {
		for _, r := range f.rows {
			if r.ClientID == req.ClientID {
				return r, nil
			}
		}
	}
	f.nextID++
	now := f.tick()
	row := snippet.Snippet{
		ID:        fmt.Sprintf("r%d", f.nextID),
		UserID:    f.user.ID,
		ClientID:  req.ClientID,
		Title:     req.Title,
		Language:  req.Language,
		Code:      req.Code,
		Analysis:  req.Analysis,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeRemote) UpdateSnippet(_ context.Context, id string, req snippet.UpdateRequest) (snippet.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return snippet.Snippet{}, &gateway.RemoteError{Status: http.StatusNotFound}
	}
	req.ApplyRemote(&row)
	row.UpdatedAt = f.tick()
	f.rows[id] = row
	return row, nil
}

func (f *fakeRemote) DeleteSnippet(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[id]; !ok {
		return &gateway.RemoteError{Status: http.StatusNotFound}
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRemote) GetPreferences(context.Context) (*preferences.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.prefs == nil {
		return nil, nil
	}
	p := *f.prefs
	return &p, nil
}

func (f *fakeRemote) UpsertPreferences(_ context.Context, req preferences.UpsertRequest) (preferences.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := preferences.Default()
	if f.prefs != nil {
		p = *f.prefs
	}
	req.Apply(&p)
	p.UpdatedAt = f.tick()
	f.prefs = &p
	return p, nil
}

func (f *fakeRemote) snapshot() map[string]snippet.Snippet {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]snippet.Snippet, len(f.rows))
	for k, v := range f.rows {
		out[k] = v
	}
	return out
}

// mockRemote is used where call order or failure injection matters.
type mockRemote struct {
	mock.Mock
	pulls atomic.Int32
}

func (m *mockRemote) CurrentUser() *user.User {
	args := m.Called()
	u, _ := args.Get(0).(*user.User)
	return u
}

func (m *mockRemote) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRemote) GetSnippets(ctx context.Context) ([]snippet.Snippet, error) {
	m.pulls.Add(1)
	args := m.Called(ctx)
	list, _ := args.Get(0).([]snippet.Snippet)
	return list, args.Error(1)
}

func (m *mockRemote) CreateSnippet(ctx context.Context, req snippet.CreateRequest) (snippet.Snippet, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(snippet.Snippet), args.Error(1)
}

func (m *mockRemote) UpdateSnippet(ctx context.Context, id string, req snippet.UpdateRequest) (snippet.Snippet, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(snippet.Snippet), args.Error(1)
}

func (m *mockRemote) DeleteSnippet(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRemote) GetPreferences(ctx context.Context) (*preferences.Preferences, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*preferences.Preferences)
	return p, args.Error(1)
}

func (m *mockRemote) UpsertPreferences(ctx context.Context, req preferences.UpsertRequest) (preferences.Preferences, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(preferences.Preferences), args.Error(1)
}
