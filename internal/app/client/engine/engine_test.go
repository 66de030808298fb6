package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bugsentinel/internal/app/client/gateway"
	"bugsentinel/internal/app/client/local"
	"bugsentinel/internal/app/client/state"
	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
	"bugsentinel/internal/utils/logger"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store *local.Store
	state *state.Store
}

func newFixture() fixture {
	return fixture{
		store: local.NewStore(local.NewMemoryBackend(0), logger.Discard()),
		state: state.New(),
	}
}

func (f fixture) engine(t *testing.T, remote Remote, cfg Config) *Engine {
	t.Helper()
	e := New(f.store, remote, f.state, logger.Discard(), cfg)
	t.Cleanup(e.Close)
	return e
}

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !e.Status().SyncInProgress && e.LastResult() != nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngine_OfflineCreateThenSync(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	e := f.engine(t, remote, Config{})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "Test", Language: snippet.LangJavaScript, Code: "let a = 1"})
	require.NoError(t, err)

	list := f.store.ListSnippets()
	require.Len(t, list, 1)
	assert.Equal(t, snippet.SyncPending, list[0].SyncStatus)
	assert.Equal(t, 1, e.Status().PendingChanges)
	assert.False(t, e.Status().IsOnline)

	e.SetOnline(true)
	waitIdle(t, e)

	status := e.Status()
	assert.True(t, status.IsOnline)
	assert.Zero(t, status.PendingChanges)
	assert.NotNil(t, status.LastSync)
	assert.Equal(t, 1, remote.creates)

	got, err := f.store.GetSnippet(sn.ID)
	require.NoError(t, err)
	assert.Equal(t, snippet.SyncSynced, got.SyncStatus)
	assert.NotEmpty(t, got.RemoteID)

	snap := f.state.Snapshot()
	require.Len(t, snap.Snippets, 1)
	assert.True(t, snap.Snippets[0].Ref.IsRemote())
	assert.Zero(t, snap.Connection.PendingChanges)
}

func TestEngine_SyncNowGuards(t *testing.T) {
	f := newFixture()
	e := f.engine(t, newFakeRemote(), Config{})

	_, err := e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrOffline)

	e.mu.Lock()
	e.online = true
	e.syncing = true
	e.mu.Unlock()

	_, err = e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	e.mu.Lock()
	e.syncing = false
	e.mu.Unlock()
}

func TestEngine_FIFOReplay(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{StartOnline: true})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "A", Language: snippet.LangGo})
	require.NoError(t, err)
	_, err = f.store.UpdateSnippet(sn.ID, snippet.UpdateRequest{Code: ptr("package a")})
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteSnippet(sn.ID))

	row := snippet.Snippet{ID: "r1", Title: "A", Language: snippet.LangGo}
	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("CreateSnippet", mock.Anything, mock.MatchedBy(func(r snippet.CreateRequest) bool {
		return r.Title == "A" && r.ClientID == sn.ID
	})).Return(row, nil).Once()
	m.On("UpdateSnippet", mock.Anything, "r1", mock.Anything).Return(row, nil).Once()
	m.On("DeleteSnippet", mock.Anything, "r1").Return(nil).Once()
	m.On("GetSnippets", mock.Anything).Return([]snippet.Snippet{}, nil)
	m.On("GetPreferences", mock.Anything).Return(nil, nil)

	res, err := e.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Uploaded)
	assert.Zero(t, f.store.QueueLength())

	var order []string
	for _, c := range m.Calls {
		switch c.Method {
		case "CreateSnippet", "UpdateSnippet", "DeleteSnippet":
			order = append(order, c.Method)
		}
	}
	assert.Equal(t, []string{"CreateSnippet", "UpdateSnippet", "DeleteSnippet"}, order)
	m.AssertExpectations(t)
}

func TestEngine_PartialFailureIsolation(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{StartOnline: true})

	a, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "A", Language: snippet.LangGo})
	require.NoError(t, err)
	b, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "B", Language: snippet.LangGo})
	require.NoError(t, err)
	c, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "C", Language: snippet.LangGo})
	require.NoError(t, err)

	byTitle := func(title string) interface{} {
		return mock.MatchedBy(func(r snippet.CreateRequest) bool { return r.Title == title })
	}
	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("CreateSnippet", mock.Anything, byTitle("A")).Return(snippet.Snippet{ID: "ra", Title: "A"}, nil)
	m.On("CreateSnippet", mock.Anything, byTitle("B")).
		Return(snippet.Snippet{}, &gateway.RemoteError{Status: http.StatusUnprocessableEntity, Message: "bad"})
	m.On("CreateSnippet", mock.Anything, byTitle("C")).Return(snippet.Snippet{ID: "rc", Title: "C"}, nil)
	m.On("GetSnippets", mock.Anything).Return([]snippet.Snippet{{ID: "ra", Title: "A"}, {ID: "rc", Title: "C"}}, nil)
	m.On("GetPreferences", mock.Anything).Return(nil, nil)

	res, err := e.SyncNow(context.Background())
	require.NoError(t, err, "validation failures do not fail the pass")
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.False(t, res.Errors[0].Transient)

	queue := f.store.GetQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, b.ID, queue[0].LocalID())

	for id, want := range map[string]snippet.SyncStatus{a.ID: snippet.SyncSynced, b.ID: snippet.SyncError, c.ID: snippet.SyncSynced} {
		got, err := f.store.GetSnippet(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.SyncStatus, got.Title)
	}
	assert.Zero(t, e.RetryCount())
}

func TestEngine_FailedCreateBlocksLaterEntries(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{StartOnline: true, BaseBackoff: time.Hour})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "A", Language: snippet.LangGo})
	require.NoError(t, err)
	_, err = f.store.UpdateSnippet(sn.ID, snippet.UpdateRequest{Code: ptr("x")})
	require.NoError(t, err)

	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("CreateSnippet", mock.Anything, mock.Anything).Return(snippet.Snippet{}, gateway.ErrTransient)
	m.On("GetSnippets", mock.Anything).Return([]snippet.Snippet{}, nil)
	m.On("GetPreferences", mock.Anything).Return(nil, nil)

	res, err := e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, f.store.QueueLength())
	m.AssertNotCalled(t, "UpdateSnippet", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, e.RetryCount())
}

func TestEngine_TransientFailureKeepsSnippetPending(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{StartOnline: true, BaseBackoff: time.Hour})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "A", Language: snippet.LangGo})
	require.NoError(t, err)

	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("CreateSnippet", mock.Anything, mock.Anything).Return(snippet.Snippet{}, gateway.ErrTransient)
	m.On("GetSnippets", mock.Anything).Return([]snippet.Snippet{}, nil)
	m.On("GetPreferences", mock.Anything).Return(nil, nil)

	res, err := e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	require.Len(t, res.Errors, 1)
	assert.True(t, res.Errors[0].Transient)

	got, err := f.store.GetSnippet(sn.ID)
	require.NoError(t, err)
	assert.Equal(t, snippet.SyncPending, got.SyncStatus)

	snap := f.state.Snapshot()
	require.Len(t, snap.Snippets, 1)
	assert.Equal(t, snippet.SyncPending, snap.Snippets[0].SyncStatus)
	assert.Equal(t, 1, snap.Connection.PendingChanges)
}

func TestEngine_FailureOnlyHoldsBackItsOwnSnippet(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{StartOnline: true, BaseBackoff: time.Hour})

	a, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "A", Language: snippet.LangGo})
	require.NoError(t, err)
	b, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "B", Language: snippet.LangGo})
	require.NoError(t, err)
	c, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "C", Language: snippet.LangGo})
	require.NoError(t, err)
	_, err = f.store.UpdateSnippet(b.ID, snippet.UpdateRequest{Code: ptr("b2")})
	require.NoError(t, err)

	byTitle := func(title string) interface{} {
		return mock.MatchedBy(func(r snippet.CreateRequest) bool { return r.Title == title })
	}
	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("CreateSnippet", mock.Anything, byTitle("A")).Return(snippet.Snippet{ID: "ra", Title: "A", Language: snippet.LangGo}, nil)
	m.On("CreateSnippet", mock.Anything, byTitle("B")).Return(snippet.Snippet{}, gateway.ErrTransient)
	m.On("CreateSnippet", mock.Anything, byTitle("C")).Return(snippet.Snippet{ID: "rc", Title: "C", Language: snippet.LangGo}, nil)
	m.On("GetSnippets", mock.Anything).Return([]snippet.Snippet{
		{ID: "ra", Title: "A", Language: snippet.LangGo},
		{ID: "rc", Title: "C", Language: snippet.LangGo},
	}, nil)
	m.On("GetPreferences", mock.Anything).Return(nil, nil)

	res, err := e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Skipped)

	var created []string
	for _, call := range m.Calls {
		if call.Method == "CreateSnippet" {
			created = append(created, call.Arguments.Get(1).(snippet.CreateRequest).Title)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, created)
	m.AssertNotCalled(t, "UpdateSnippet", mock.Anything, mock.Anything, mock.Anything)

	queue := f.store.GetQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, local.OpCreate, queue[0].Kind)
	assert.Equal(t, local.OpUpdate, queue[1].Kind)
	assert.Equal(t, b.ID, queue[0].LocalID())
	assert.Equal(t, b.ID, queue[1].LocalID())

	for id, want := range map[string]snippet.SyncStatus{a.ID: snippet.SyncSynced, b.ID: snippet.SyncPending, c.ID: snippet.SyncSynced} {
		got, err := f.store.GetSnippet(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.SyncStatus, got.Title)
	}
}

func TestEngine_PullFailureIsRecorded(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{BaseBackoff: time.Hour})

	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("GetSnippets", mock.Anything).Return(nil, gateway.ErrTransient)

	e.SetOnline(true)
	waitIdle(t, e)

	res := e.LastResult()
	assert.Zero(t, res.Failed)
	assert.Contains(t, res.Error, "pull snippets")
	assert.False(t, res.OK())
	assert.ErrorIs(t, e.LastErr(), gateway.ErrTransient)
	assert.Equal(t, 1, e.RetryCount())

	t.Run("a clean pass clears it", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("CurrentUser").Return(&user.User{ID: "u1"})
		m.On("GetSnippets", mock.Anything).Return([]snippet.Snippet{}, nil)
		m.On("GetPreferences", mock.Anything).Return(nil, nil)

		res, err := e.SyncNow(context.Background())
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.NoError(t, e.LastErr())
	})
}

func TestEngine_BackoffBound(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{BaseBackoff: time.Millisecond, MaxRetries: 3})

	m.On("CurrentUser").Return(&user.User{ID: "u1"})
	m.On("GetSnippets", mock.Anything).Return(nil, gateway.ErrTransient)

	e.SetOnline(true)

	require.Eventually(t, func() bool { return e.RetryCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	m.AssertNumberOfCalls(t, "GetSnippets", 3)
	assert.Equal(t, 3, e.RetryCount())

	t.Run("connectivity event resets the counter", func(t *testing.T) {
		e.SetOnline(false)
		e.SetOnline(true)
		require.Eventually(t, func() bool {
			return m.pulls.Load() >= 4
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestEngine_NoSessionDoesNotRetry(t *testing.T) {
	f := newFixture()
	m := &mockRemote{}
	e := f.engine(t, m, Config{StartOnline: true, BaseBackoff: time.Millisecond})

	m.On("CurrentUser").Return(nil)

	_, err := e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, e.RetryCount())
}

func TestEngine_IdempotentReplay(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	e := f.engine(t, remote, Config{StartOnline: true})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "foo", Language: snippet.LangJavaScript})
	require.NoError(t, err)

	// the create reached the server but the process died before the queue was updated
	_, err = remote.CreateSnippet(context.Background(), snippet.CreateRequest{Title: "foo", Language: snippet.LangJavaScript, ClientID: sn.ID})
	require.NoError(t, err)

	_, err = e.SyncNow(context.Background())
	require.NoError(t, err)

	assert.Len(t, remote.snapshot(), 1)
	assert.Len(t, f.state.Snapshot().Snippets, 1)
	assert.Zero(t, f.store.QueueLength())
}

func TestEngine_SequentialUpdatesLastWins(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	e := f.engine(t, remote, Config{})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "draft", Language: snippet.LangPython, Code: "v0"})
	require.NoError(t, err)
	_, err = f.store.UpdateSnippet(sn.ID, snippet.UpdateRequest{Title: ptr("first"), Code: ptr("v1")})
	require.NoError(t, err)
	_, err = f.store.UpdateSnippet(sn.ID, snippet.UpdateRequest{Code: ptr("v2")})
	require.NoError(t, err)

	queue := f.store.GetQueue()
	require.Len(t, queue, 3)
	assert.Equal(t, local.OpUpdate, queue[1].Kind)
	assert.Equal(t, local.OpUpdate, queue[2].Kind)
	assert.Equal(t, "v1", queue[1].Snippet.Code)
	assert.Equal(t, "v2", queue[2].Snippet.Code)

	e.SetOnline(true)
	waitIdle(t, e)

	rows := remote.snapshot()
	require.Len(t, rows, 1)
	for _, r := range rows {
		assert.Equal(t, "first", r.Title)
		assert.Equal(t, "v2", r.Code)
	}
	assert.Zero(t, f.store.QueueLength())
}

func TestEngine_OfflineEditOfRemoteSnippet(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	base, err := remote.CreateSnippet(context.Background(), snippet.CreateRequest{Title: "shared", Language: snippet.LangSQL, Code: "select 1"})
	require.NoError(t, err)
	e := f.engine(t, remote, Config{})

	_, err = f.store.StageRemoteUpdate(base, snippet.UpdateRequest{Title: ptr("renamed")})
	require.NoError(t, err)
	_, err = f.store.StageRemoteUpdate(base, snippet.UpdateRequest{Code: ptr("select 2")})
	require.NoError(t, err)

	e.SetOnline(true)
	waitIdle(t, e)

	rows := remote.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "renamed", rows[base.ID].Title)
	assert.Equal(t, "select 2", rows[base.ID].Code)

	snap := f.state.Snapshot()
	require.Len(t, snap.Snippets, 1)
	assert.True(t, snap.Snippets[0].Ref.Equal(snippet.RemoteRef(base.ID)))
}

func TestEngine_DeleteOfVanishedRemote(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	e := f.engine(t, remote, Config{StartOnline: true})

	require.NoError(t, f.store.StageRemoteDelete(snippet.Snippet{ID: "gone", Title: "x", Language: snippet.LangGo}))

	res, err := e.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, f.store.QueueLength())
	assert.Zero(t, res.Failed)
}

func TestEngine_PreferencesRoundTrip(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	e := f.engine(t, remote, Config{StartOnline: true})

	sn, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "last", Language: snippet.LangGo})
	require.NoError(t, err)

	p := preferences.Default()
	p.Theme = preferences.ThemeDark
	p.LastSnippetID = sn.ID
	_, err = f.store.SavePreferences(p)
	require.NoError(t, err)

	_, err = e.SyncNow(context.Background())
	require.NoError(t, err)

	got, err := f.store.GetSnippet(sn.ID)
	require.NoError(t, err)

	require.NotNil(t, remote.prefs)
	assert.Equal(t, preferences.ThemeDark, remote.prefs.Theme)
	assert.Equal(t, got.RemoteID, remote.prefs.LastSnippetID)
	assert.Equal(t, snippet.SyncSynced, f.store.GetPreferences().SyncStatus)
	assert.Equal(t, preferences.ThemeDark, f.state.Snapshot().Theme)
}

func TestEngine_PullAppliesRemoteTheme(t *testing.T) {
	f := newFixture()
	remote := newFakeRemote()
	dark := preferences.Default()
	dark.Theme = preferences.ThemeDark
	remote.prefs = &dark
	e := f.engine(t, remote, Config{StartOnline: true})

	_, err := e.SyncNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, preferences.ThemeDark, f.state.Snapshot().Theme)
	require.NotNil(t, f.store.GetPreferences())
	assert.Equal(t, preferences.ThemeDark, f.store.GetPreferences().Theme)
}

func TestEngine_CloseKeepsData(t *testing.T) {
	f := newFixture()
	e := New(f.store, newFakeRemote(), f.state, logger.Discard(), Config{SyncInterval: time.Millisecond})
	e.Start()

	_, err := f.store.SaveSnippet(snippet.CreateRequest{Title: "keep", Language: snippet.LangGo})
	require.NoError(t, err)

	e.Close()
	assert.Equal(t, 1, f.store.QueueLength())

	_, err = e.SyncNow(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}
