// Package engine drains the local change queue to the remote store and
// reconciles both sides while tracking connectivity.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"bugsentinel/internal/app/client/local"
	"bugsentinel/internal/app/client/state"
	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

var (
	ErrOffline        = errors.New("offline")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNoSession      = errors.New("no signed-in user")
	ErrIncomplete     = errors.New("some changes could not be uploaded")
	ErrClosed         = errors.New("sync engine closed")
)

// Remote is the part of the gateway the engine replays against.
type Remote interface {
	CurrentUser() *user.User
	HealthCheck(ctx context.Context) error
	GetSnippets(ctx context.Context) ([]snippet.Snippet, error)
	CreateSnippet(ctx context.Context, req snippet.CreateRequest) (snippet.Snippet, error)
	UpdateSnippet(ctx context.Context, id string, req snippet.UpdateRequest) (snippet.Snippet, error)
	DeleteSnippet(ctx context.Context, id string) error
	GetPreferences(ctx context.Context) (*preferences.Preferences, error)
	UpsertPreferences(ctx context.Context, req preferences.UpsertRequest) (preferences.Preferences, error)
}

type Config struct {
	MaxRetries   int
	BaseBackoff  time.Duration
	SyncInterval time.Duration
	MatchWindow  time.Duration
	StartOnline  bool
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MatchWindow <= 0 {
		c.MatchWindow = DefaultMatchWindow
	}
	return c
}

type Engine struct {
	store  *local.Store
	remote Remote
	state  *state.Store
	log    *slog.Logger
	cfg    Config
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	online     bool
	syncing    bool
	closed     bool
	retryCount int
	retryTimer *time.Timer
	lastSync   *time.Time
	lastResult *Result
	lastErr    error
}

func New(store *local.Store, remote Remote, st *state.Store, log *slog.Logger, cfg Config) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	cfg = cfg.withDefaults()

	e := &Engine{
		store:  store,
		remote: remote,
		state:  st,
		log:    log.With("component", "sync_engine"),
		cfg:    cfg,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		online: cfg.StartOnline,
	}
	e.lastSync = store.SyncMeta().LastSync

	e.publish()
	return e
}

// Start runs the periodic sync loop when an interval is configured.
func (e *Engine) Start() {
	if e.cfg.SyncInterval <= 0 {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				if e.idle() {
					e.trigger("interval")
				}
			}
		}
	}()
}

// idle reports whether a periodic pass may start. Exhausted or pending
// retries are left to connectivity events and manual triggers.
func (e *Engine) idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online && !e.syncing && !e.closed && e.retryTimer == nil && e.retryCount == 0
}

// SetOnline records a connectivity transition. Going online resets the
// retry counter and starts a pass.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	was := e.online
	e.online = online
	if !online {
		e.stopRetryLocked()
	}
	if online && !was {
		e.retryCount = 0
	}
	e.mu.Unlock()

	if was != online {
		e.log.Info("connectivity changed", "online", online)
	}
	e.publish()

	if online && !was {
		e.trigger("online")
	}
}

// ForceSyncNow starts a pass in the background unless offline or busy.
func (e *Engine) ForceSyncNow() {
	e.mu.Lock()
	if !e.online || e.syncing || e.closed {
		e.mu.Unlock()
		return
	}
	e.retryCount = 0
	e.stopRetryLocked()
	e.mu.Unlock()

	e.trigger("manual")
}

// SyncNow runs a pass on the caller's goroutine.
func (e *Engine) SyncNow(ctx context.Context) (*Result, error) {
	if err := e.begin(true); err != nil {
		return nil, err
	}
	e.publish()
	return e.pass(ctx, "manual")
}

func (e *Engine) Status() state.Connection {
	e.mu.Lock()
	c := state.Connection{
		IsOnline:       e.online,
		SyncInProgress: e.syncing,
	}
	if e.lastSync != nil {
		t := *e.lastSync
		c.LastSync = &t
	}
	e.mu.Unlock()

	c.PendingChanges = e.store.QueueLength()
	return c
}

func (e *Engine) IsOnline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// LastResult is the outcome of the most recent pass in this process.
func (e *Engine) LastResult() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// LastErr is the error of the most recent pass, nil when it succeeded.
func (e *Engine) LastErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) RetryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retryCount
}

// Close stops timers and background work. Persisted data is untouched.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.stopRetryLocked()
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *Engine) trigger(reason string) {
	if err := e.begin(false); err != nil {
		e.log.Debug("sync not started", "reason", reason, "error", err)
		return
	}
	e.publish()

	go func() {
		if _, err := e.pass(e.ctx, reason); err != nil {
			e.log.Warn("sync pass failed", "reason", reason, "error", err)
		}
	}()
}

// begin claims the single in-flight pass slot. A successful begin must be
// followed by pass.
func (e *Engine) begin(manual bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return ErrClosed
	case !e.online:
		return ErrOffline
	case e.syncing:
		return ErrSyncInProgress
	}
	if manual {
		e.retryCount = 0
		e.stopRetryLocked()
	}
	e.syncing = true
	e.wg.Add(1)
	return nil
}

func (e *Engine) pass(ctx context.Context, reason string) (*Result, error) {
	defer e.wg.Done()

	res := &Result{StartedAt: e.now()}
	e.log.Debug("sync pass started", "reason", reason)

	err := e.run(ctx, res)

	res.Duration = e.now().Sub(res.StartedAt)
	if err != nil {
		res.Error = err.Error()
	}
	e.finish(res, err)
	return res, err
}

func (e *Engine) finish(res *Result, err error) {
	e.mu.Lock()
	e.syncing = false
	e.lastResult = res
	e.lastErr = err

	switch {
	case err == nil:
		t := e.now()
		e.lastSync = &t
		e.retryCount = 0
	case errors.Is(err, ErrNoSession), errors.Is(err, context.Canceled):
	default:
		e.retryCount++
		if e.retryCount < e.cfg.MaxRetries && e.online && !e.closed {
			delay := e.cfg.BaseBackoff * time.Duration(1<<e.retryCount)
			e.log.Info("scheduling sync retry", "attempt", e.retryCount, "delay", delay)
			e.stopRetryLocked()
			e.retryTimer = time.AfterFunc(delay, e.onRetry)
		} else {
			e.log.Warn("sync retries exhausted", "attempts", e.retryCount)
		}
	}
	lastSync := e.lastSync
	e.mu.Unlock()

	e.saveMeta(res, err, lastSync)
	e.publish()

	if err == nil {
		e.log.Info("sync pass completed",
			"uploaded", res.Uploaded,
			"failed", res.Failed,
			"downloaded", res.Downloaded,
			"duration", res.Duration,
		)
	}
}

func (e *Engine) onRetry() {
	e.mu.Lock()
	e.retryTimer = nil
	e.mu.Unlock()

	e.trigger("retry")
}

func (e *Engine) stopRetryLocked() {
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
}

func (e *Engine) saveMeta(res *Result, err error, lastSync *time.Time) {
	meta := e.store.SyncMeta()
	meta.TotalSyncs++
	meta.Uploaded += res.Uploaded
	meta.Downloaded += res.Downloaded
	meta.Failed += res.Failed
	meta.LastSync = lastSync
	meta.LastError = ""
	if err != nil {
		meta.LastError = err.Error()
	}
	if err := e.store.SaveSyncMeta(meta); err != nil {
		e.log.Warn("failed to save sync metadata", "error", err)
	}
}

func (e *Engine) publish() {
	if e.state == nil {
		return
	}
	e.state.SetConnection(e.Status())
}
