package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugsentinel/internal/app/client/gateway"
	"bugsentinel/internal/app/server/api"
	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/session"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
	"bugsentinel/internal/utils/logger"
)

// In-memory repositories stand in for Postgres.

type memUsers struct {
	mu    sync.Mutex
	users map[string]user.User
}

func (m *memUsers) Create(_ context.Context, email, hash string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return user.User{}, user.ErrAlreadyExists
		}
	}
	u := user.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memRevocations) Revoke(_ context.Context, id string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = exp
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

type memSnippets struct {
	mu    sync.Mutex
	items map[string]snippet.Snippet
}

func (m *memSnippets) Create(_ context.Context, s *snippet.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ClientID != "" {
		for _, existing := range m.items {
			if existing.UserID == s.UserID && existing.ClientID == s.ClientID {
				*s = existing
				return nil
			}
		}
	}
	s.ID = uuid.NewString()
	m.items[s.ID] = *s
	return nil
}

func (m *memSnippets) Get(_ context.Context, userID, id string) (*snippet.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok || s.UserID != userID {
		return nil, snippet.ErrNotFound
	}
	return &s, nil
}

func (m *memSnippets) List(_ context.Context, userID string) ([]snippet.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []snippet.Snippet
	for _, s := range m.items {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSnippets) Update(_ context.Context, s *snippet.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.ID]; !ok {
		return snippet.ErrNotFound
	}
	m.items[s.ID] = *s
	return nil
}

func (m *memSnippets) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok || s.UserID != userID {
		return snippet.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memPreferences struct {
	mu    sync.Mutex
	items map[string]preferences.Preferences
}

func (m *memPreferences) Get(_ context.Context, userID string) (*preferences.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[userID]
	if !ok {
		return nil, preferences.ErrNotFound
	}
	return &p, nil
}

func (m *memPreferences) Upsert(_ context.Context, p *preferences.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.UserID] = *p
	return nil
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	svc := api.Services{
		Users:       user.NewService(&memUsers{users: map[string]user.User{}}, user.NewPasswordValidator(), log),
		Sessions:    session.NewService(&memRevocations{revoked: map[string]time.Time{}}, "test-secret-0123456789", time.Hour, log),
		Snippets:    snippet.NewService(&memSnippets{items: map[string]snippet.Snippet{}}, log),
		Preferences: preferences.NewService(&memPreferences{items: map[string]preferences.Preferences{}}, log),
	}
	srv := httptest.NewServer(api.New(svc, log))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, srv *httptest.Server) (*gateway.HTTPGateway, string) {
	t.Helper()
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	gw, err := gateway.NewHTTPGateway(gateway.Config{
		ServerAddress: strings.TrimPrefix(srv.URL, "http://"),
		SessionFile:   sessionFile,
	}, logger.Discard())
	require.NoError(t, err)
	return gw, sessionFile
}

func TestAPI_GatewayRoundTrip(t *testing.T) {
	srv := newServer(t)
	gw, sessionFile := newGateway(t, srv)
	ctx := context.Background()

	require.NoError(t, gw.HealthCheck(ctx))

	_, err := gw.GetSnippets(ctx)
	require.ErrorIs(t, err, gateway.ErrNotAuthenticated)

	u, err := gw.SignUp(ctx, user.Credentials{Email: "Alice@Example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	require.NotNil(t, gw.CurrentUser())

	me, err := gw.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, u.ID, me.ID)

	t.Run("duplicate sign-up is refused", func(t *testing.T) {
		other, _ := newGateway(t, srv)
		_, err := other.SignUp(ctx, user.Credentials{Email: "alice@example.com", Password: "Secret123"})
		var re *gateway.RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusConflict, re.Status)
	})

	req := snippet.CreateRequest{
		Title:    "Hello",
		Language: snippet.LangGo,
		Code:     "package main",
		ClientID: "local_abc",
	}
	first, err := gw.CreateSnippet(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	// A replayed create returns the same row.
	again, err := gw.CreateSnippet(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	code := "package main\n\nfunc main() {}"
	issues := []snippet.Issue{{Type: "style", Severity: "low", Message: "empty main", Line: 3, Column: 1}}
	updated, err := gw.UpdateSnippet(ctx, first.ID, snippet.UpdateRequest{Code: &code, Analysis: &issues})
	require.NoError(t, err)
	assert.Equal(t, code, updated.Code)
	assert.Equal(t, issues, updated.Analysis)
	assert.Equal(t, "Hello", updated.Title)

	list, err := gw.GetSnippets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	_, err = gw.CreateSnippet(ctx, snippet.CreateRequest{Title: "Bad", Language: "cobol"})
	var re *gateway.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnprocessableEntity, re.Status)
	assert.False(t, gateway.IsTransient(err))

	prefs, err := gw.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Nil(t, prefs)

	dark := preferences.ThemeDark
	saved, err := gw.UpsertPreferences(ctx, preferences.UpsertRequest{Theme: &dark})
	require.NoError(t, err)
	assert.Equal(t, preferences.ThemeDark, saved.Theme)
	assert.Equal(t, preferences.DefaultEditorSettings(), saved.EditorSettings)

	prefs, err = gw.GetPreferences(ctx)
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, preferences.ThemeDark, prefs.Theme)

	require.NoError(t, gw.DeleteSnippet(ctx, first.ID))
	err = gw.DeleteSnippet(ctx, first.ID)
	assert.True(t, gateway.IsNotFound(err))

	raw, err := os.ReadFile(sessionFile)
	require.NoError(t, err)
	var stored struct {
		Token string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.NotEmpty(t, stored.Token)

	require.NoError(t, gw.SignOut(ctx))
	assert.Nil(t, gw.CurrentUser())

	// The signed-out token is revoked on the server.
	httpReq, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auth/me", nil)
	require.NoError(t, err)
	httpReq.Header.Set("Authorization", "Bearer "+stored.Token)
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_SignInWrongPassword(t *testing.T) {
	srv := newServer(t)
	gw, _ := newGateway(t, srv)
	ctx := context.Background()

	_, err := gw.SignUp(ctx, user.Credentials{Email: "bob@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.NoError(t, gw.SignOut(ctx))

	_, err = gw.SignIn(ctx, user.Credentials{Email: "bob@example.com", Password: "Wrong1234"})
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Nil(t, gw.CurrentUser())

	_, err = gw.SignIn(ctx, user.Credentials{Email: "bob@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.NotNil(t, gw.CurrentUser())
}
