// Package ai asks a language model to review, refactor and improve snippets.
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"

	"bugsentinel/internal/domain/snippet"
)

var (
	ErrRateLimited       = errors.New("AI request limit reached, try again later")
	ErrMissingAPIKey     = errors.New("AI API key is not configured")
	ErrMalformedResponse = errors.New("could not parse AI response")
)

// Completer sends one prompt to a model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Config struct {
	// RequestsPerHour bounds calls that reach the model. Cached answers are free.
	RequestsPerHour int
	CacheTTL        time.Duration
}

type AnalyzeRequest struct {
	Code     string
	Language snippet.Language
	Prompt   string
}

type RefactorResult struct {
	OriginalCode   string   `json:"originalCode" yaml:"original_code"`
	RefactoredCode string   `json:"refactoredCode" yaml:"refactored_code"`
	Explanation    string   `json:"explanation" yaml:"explanation"`
	Improvements   []string `json:"improvements" yaml:"improvements"`
}

type Suggestion struct {
	Suggestion  string `json:"suggestion" yaml:"suggestion"`
	Code        string `json:"code" yaml:"code"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

type FullReport struct {
	Issues      []snippet.Issue `json:"issues" yaml:"issues"`
	Refactor    *RefactorResult `json:"refactoring,omitempty" yaml:"refactoring,omitempty"`
	Suggestions []Suggestion    `json:"suggestions" yaml:"suggestions"`
}

type Client struct {
	completer Completer
	limiter   *rate.Limiter
	log       *slog.Logger
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// New returns a client; a nil completer makes every call fail with
// ErrMissingAPIKey.
func New(c Completer, cfg Config, log *slog.Logger) *Client {
	perHour := cfg.RequestsPerHour
	if perHour <= 0 {
		perHour = 10
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{
		completer: c,
		limiter:   rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
		log:       log.With("component", "ai"),
		ttl:       ttl,
		now:       time.Now,
		cache:     make(map[string]cacheEntry),
	}
}

func (c *Client) Available() bool { return c.completer != nil }

// Remaining is how many model calls may be made right now.
func (c *Client) Remaining() int {
	n := int(c.limiter.Tokens())
	if n < 0 {
		return 0
	}
	return n
}

func (c *Client) AnalyzeCode(ctx context.Context, req AnalyzeRequest) ([]snippet.Issue, error) {
	key := cacheKey("analyze", req.Language, req.Code+"\x00"+req.Prompt)
	if v, ok := c.cached(key); ok {
		return v.([]snippet.Issue), nil
	}

	text, err := c.complete(ctx, analyzePrompt(req))
	if err != nil {
		return nil, err
	}
	var out struct {
		Issues []rawIssue `json:"issues"`
	}
	if err := decodeJSONBlock(text, &out); err != nil {
		return nil, err
	}

	issues := normalizeIssues(out.Issues)
	c.store(key, issues)
	return issues, nil
}

func (c *Client) GetRefactoringSuggestions(ctx context.Context, code string, lang snippet.Language) (*RefactorResult, error) {
	key := cacheKey("refactor", lang, code)
	if v, ok := c.cached(key); ok {
		return v.(*RefactorResult), nil
	}

	text, err := c.complete(ctx, refactorPrompt(code, lang))
	if err != nil {
		return nil, err
	}
	var out RefactorResult
	if err := decodeJSONBlock(text, &out); err != nil {
		return nil, err
	}

	res := normalizeRefactor(out, code)
	c.store(key, res)
	return res, nil
}

func (c *Client) GetCodeSuggestions(ctx context.Context, code string, lang snippet.Language, hint string) ([]Suggestion, error) {
	key := cacheKey("suggest", lang, code+"\x00"+hint)
	if v, ok := c.cached(key); ok {
		return v.([]Suggestion), nil
	}

	text, err := c.complete(ctx, suggestPrompt(code, lang, hint))
	if err != nil {
		return nil, err
	}
	var out struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := decodeJSONBlock(text, &out); err != nil {
		return nil, err
	}
	if out.Suggestions == nil {
		out.Suggestions = []Suggestion{}
	}

	c.store(key, out.Suggestions)
	return out.Suggestions, nil
}

// AnalyzeAll gets issues, a refactoring and suggestions from one model call.
func (c *Client) AnalyzeAll(ctx context.Context, code string, lang snippet.Language) (*FullReport, error) {
	key := cacheKey("all", lang, code)
	if v, ok := c.cached(key); ok {
		return v.(*FullReport), nil
	}

	text, err := c.complete(ctx, allPrompt(code, lang))
	if err != nil {
		return nil, err
	}
	var out struct {
		Analysis struct {
			Issues []rawIssue `json:"issues"`
		} `json:"analysis"`
		Refactoring *RefactorResult `json:"refactoring"`
		Suggestions []Suggestion    `json:"suggestions"`
	}
	if err := decodeJSONBlock(text, &out); err != nil {
		return nil, err
	}

	report := &FullReport{
		Issues:      normalizeIssues(out.Analysis.Issues),
		Suggestions: out.Suggestions,
	}
	if out.Refactoring != nil {
		report.Refactor = normalizeRefactor(*out.Refactoring, code)
	}
	if report.Suggestions == nil {
		report.Suggestions = []Suggestion{}
	}

	c.store(key, report)
	return report, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.completer == nil {
		return "", ErrMissingAPIKey
	}
	if !c.limiter.Allow() {
		return "", ErrRateLimited
	}

	start := c.now()
	text, err := c.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		c.log.Warn("AI request failed", "error", err)
		return "", fmt.Errorf("AI request: %w", err)
	}
	c.log.Debug("AI request completed", "duration", c.now().Sub(start), "remaining", c.Remaining())
	return text, nil
}

func (c *Client) cached(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.cache, key)
		return nil, false
	}
	return e.value, true
}

func (c *Client) store(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{value: v, expires: c.now().Add(c.ttl)}
}

func cacheKey(kind string, lang snippet.Language, code string) string {
	sum := sha256.Sum256([]byte(kind + "\x00" + string(lang) + "\x00" + code))
	return hex.EncodeToString(sum[:])
}
