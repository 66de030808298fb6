package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
	"bugsentinel/internal/domain/user"
)

type Config struct {
	ServerAddress string
	EnableTLS     bool
	// SessionFile persists the bearer token; empty keeps it in memory only.
	SessionFile string
	Timeout     time.Duration
}

// HTTPGateway talks to the BugSentinel API server.
type HTTPGateway struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
	tokenPath string
	now       func() time.Time

	mu        sync.RWMutex
	session   *storedSession
	listeners map[int]func(*user.User)
	nextID    int
}

func NewHTTPGateway(cfg Config, log *slog.Logger) (*HTTPGateway, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	g := &HTTPGateway{
		client:    client,
		log:       log.With("component", "gateway"),
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "BugSentinel-CLI/1.0",
		tokenPath: cfg.SessionFile,
		now:       time.Now,
		listeners: make(map[int]func(*user.User)),
	}

	s, err := loadSession(cfg.SessionFile)
	if err != nil {
		g.log.Warn("ignoring unreadable session", "error", err)
	}
	if s != nil && !s.expired(g.now()) {
		g.session = s
	}

	return g, nil
}

// CurrentUser is the signed-in user, known without a network call. An
// expired session is dropped here and listeners see the sign-out.
func (g *HTTPGateway) CurrentUser() *user.User {
	g.mu.RLock()
	s := g.session
	g.mu.RUnlock()

	if s == nil {
		return nil
	}
	if s.expired(g.now()) {
		g.log.Info("session expired, signing out locally", "user_id", s.User.ID)
		g.replaceSession(nil, s)
		return nil
	}
	u := s.User
	return &u
}

// OnSessionChange registers fn for sign-in and sign-out transitions.
func (g *HTTPGateway) OnSessionChange(fn func(*user.User)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

func (g *HTTPGateway) HealthCheck(ctx context.Context) error {
	resp, err := g.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return g.parseResponse(resp, nil)
}

func (g *HTTPGateway) SignUp(ctx context.Context, creds user.Credentials) (user.User, error) {
	return g.authenticate(ctx, "/api/v1/auth/signup", creds)
}

func (g *HTTPGateway) SignIn(ctx context.Context, creds user.Credentials) (user.User, error) {
	return g.authenticate(ctx, "/api/v1/auth/signin", creds)
}

func (g *HTTPGateway) authenticate(ctx context.Context, path string, creds user.Credentials) (user.User, error) {
	resp, err := g.doRequest(ctx, http.MethodPost, path, creds)
	if err != nil {
		return user.User{}, err
	}

	var out user.AuthResponse
	if err := g.parseResponse(resp, &out); err != nil {
		return user.User{}, err
	}
	if out.AccessToken == "" {
		return user.User{}, fmt.Errorf("%w: empty token in auth response", ErrTransient)
	}

	g.setSession(&storedSession{Token: out.AccessToken, ExpiresAt: out.ExpiresAt, User: out.User})
	return out.User, nil
}

// SignOut revokes the token remotely when possible and always forgets it locally.
func (g *HTTPGateway) SignOut(ctx context.Context) error {
	if g.token() == "" {
		return nil
	}

	var remoteErr error
	resp, err := g.doRequest(ctx, http.MethodPost, "/api/v1/auth/signout", nil)
	if err == nil {
		remoteErr = g.parseResponse(resp, nil)
	} else {
		remoteErr = err
	}
	if remoteErr != nil && !errors.Is(remoteErr, ErrUnauthorized) {
		g.log.Warn("remote sign-out failed", "error", remoteErr)
	}

	g.setSession(nil)
	return nil
}

func (g *HTTPGateway) GetCurrentUser(ctx context.Context) (*user.User, error) {
	if g.token() == "" {
		return nil, nil
	}
	resp, err := g.doRequest(ctx, http.MethodGet, "/api/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := g.parseResponse(resp, &u); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (g *HTTPGateway) GetSnippets(ctx context.Context) ([]snippet.Snippet, error) {
	var out snippet.ListResponse
	if err := g.authorized(ctx, http.MethodGet, "/api/v1/snippets", nil, &out); err != nil {
		return nil, err
	}
	if out.Snippets == nil {
		out.Snippets = []snippet.Snippet{}
	}
	return out.Snippets, nil
}

func (g *HTTPGateway) CreateSnippet(ctx context.Context, req snippet.CreateRequest) (snippet.Snippet, error) {
	var out snippet.Snippet
	err := g.authorized(ctx, http.MethodPost, "/api/v1/snippets", req, &out)
	return out, err
}

func (g *HTTPGateway) UpdateSnippet(ctx context.Context, id string, req snippet.UpdateRequest) (snippet.Snippet, error) {
	var out snippet.Snippet
	err := g.authorized(ctx, http.MethodPatch, "/api/v1/snippets/"+url.PathEscape(id), req, &out)
	return out, err
}

func (g *HTTPGateway) DeleteSnippet(ctx context.Context, id string) error {
	return g.authorized(ctx, http.MethodDelete, "/api/v1/snippets/"+url.PathEscape(id), nil, nil)
}

// GetPreferences returns nil when the user never saved any.
func (g *HTTPGateway) GetPreferences(ctx context.Context) (*preferences.Preferences, error) {
	var out preferences.Preferences
	err := g.authorized(ctx, http.MethodGet, "/api/v1/preferences", nil, &out)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) UpsertPreferences(ctx context.Context, req preferences.UpsertRequest) (preferences.Preferences, error) {
	var out preferences.Preferences
	err := g.authorized(ctx, http.MethodPut, "/api/v1/preferences", req, &out)
	return out, err
}

func (g *HTTPGateway) authorized(ctx context.Context, method, path string, body, result any) error {
	if g.token() == "" {
		return ErrNotAuthenticated
	}
	resp, err := g.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	err = g.parseResponse(resp, result)
	if errors.Is(err, ErrUnauthorized) {
		g.log.Info("session rejected by server, signing out locally")
		g.setSession(nil)
	}
	return err
}

func (g *HTTPGateway) token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.session == nil || g.session.expired(g.now()) {
		return ""
	}
	return g.session.Token
}

func (g *HTTPGateway) setSession(s *storedSession) {
	g.replaceSession(s, nil)
}

// replaceSession installs s. With a non-nil expect nothing happens unless
// expect is still the current session.
func (g *HTTPGateway) replaceSession(s, expect *storedSession) {
	g.mu.Lock()
	if expect != nil && g.session != expect {
		g.mu.Unlock()
		return
	}
	changed := (g.session == nil) != (s == nil) ||
		(g.session != nil && s != nil && g.session.User.ID != s.User.ID)
	g.session = s
	listeners := make([]func(*user.User), 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	if err := saveSession(g.tokenPath, s); err != nil {
		g.log.Error("failed to persist session", "error", err)
	}

	if !changed {
		return
	}
	var u *user.User
	if s != nil {
		cp := s.User
		u = &cp
	}
	for _, fn := range listeners {
		fn(u)
	}
}

func (g *HTTPGateway) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := g.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	g.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return resp, nil
}

// problem is the RFC 9457 body the API server answers errors with.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (g *HTTPGateway) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrTransient, err)
	}

	g.log.Debug("received response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: server answered %d", ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		re := &RemoteError{Status: resp.StatusCode}
		var p problem
		if err := json.Unmarshal(body, &p); err == nil {
			re.Message = p.Detail
			if re.Message == "" {
				re.Message = p.Title
			}
		}
		return re
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
