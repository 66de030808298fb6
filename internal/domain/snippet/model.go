package snippet

import (
	"strings"
	"time"
)

// Snippet is the authoritative row held by the remote store.
type Snippet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ClientID  string    `json:"client_id,omitempty"`
	Title     string    `json:"title"`
	Language  Language  `json:"language"`
	Code      string    `json:"code"`
	Analysis  []Issue   `json:"analysis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// LocalSnippet is a snippet persisted on this device.
// RemoteID is filled in once the create has been replayed remotely.
type LocalSnippet struct {
	ID         string     `json:"id"`
	RemoteID   string     `json:"remote_id,omitempty"`
	Title      string     `json:"title"`
	Language   Language   `json:"language"`
	Code       string     `json:"code"`
	Analysis   []Issue    `json:"analysis,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	SyncStatus SyncStatus `json:"sync_status"`
}

// View is the common shape handed to the UI regardless of origin.
type View struct {
	Ref        Ref        `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Language   Language   `json:"language" yaml:"language"`
	Code       string     `json:"code" yaml:"code"`
	Analysis   []Issue    `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
	SyncStatus SyncStatus `json:"sync_status" yaml:"sync_status"`
}

func (s Snippet) View() View {
	return View{
		Ref:        RemoteRef(s.ID),
		Title:      s.Title,
		Language:   s.Language,
		Code:       s.Code,
		Analysis:   s.Analysis,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		SyncStatus: SyncSynced,
	}
}

func (s LocalSnippet) View() View {
	return View{
		Ref:        LocalRef(s.ID),
		Title:      s.Title,
		Language:   s.Language,
		Code:       s.Code,
		Analysis:   s.Analysis,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		SyncStatus: s.SyncStatus,
	}
}

// Key identifies the logical snippet across identifier spaces.
type Key struct {
	Title    string   `json:"title"`
	Language Language `json:"language"`
}

func (s LocalSnippet) Key() Key { return Key{Title: s.Title, Language: s.Language} }
func (s Snippet) Key() Key      { return Key{Title: s.Title, Language: s.Language} }

// Issue is a single finding produced by code analysis.
type Issue struct {
	Type       string `json:"type" yaml:"type"`
	Severity   string `json:"severity" yaml:"severity"`
	Message    string `json:"message" yaml:"message"`
	Line       int    `json:"line" yaml:"line"`
	Column     int    `json:"column" yaml:"column"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	FixedCode  string `json:"fixedCode,omitempty" yaml:"fixed_code,omitempty"`
}

type CreateRequest struct {
	Title    string   `json:"title"`
	Language Language `json:"language"`
	Code     string   `json:"code"`
	Analysis []Issue  `json:"analysis,omitempty"`
	// ClientID makes replayed creates idempotent per user.
	ClientID string `json:"client_id,omitempty"`
}

// UpdateRequest carries a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Title    *string   `json:"title,omitempty"`
	Language *Language `json:"language,omitempty"`
	Code     *string   `json:"code,omitempty"`
	Analysis *[]Issue  `json:"analysis,omitempty"`
}

func (r UpdateRequest) IsEmpty() bool {
	return r.Title == nil && r.Language == nil && r.Code == nil && r.Analysis == nil
}

// Validate checks the fields a create must carry.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return invalid("title must not be empty")
	}
	if !r.Language.IsSupported() {
		return invalid("unsupported language %q", r.Language)
	}
	return nil
}

// Validate checks only the fields that are present.
func (r UpdateRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return invalid("title must not be empty")
	}
	if r.Language != nil && !r.Language.IsSupported() {
		return invalid("unsupported language %q", *r.Language)
	}
	return nil
}

// Apply merges r into a local snippet and reports whether anything changed.
func (r UpdateRequest) Apply(s *LocalSnippet) bool {
	return r.apply(&s.Title, &s.Language, &s.Code, &s.Analysis)
}

// ApplyRemote is Apply for remote rows.
func (r UpdateRequest) ApplyRemote(s *Snippet) bool {
	return r.apply(&s.Title, &s.Language, &s.Code, &s.Analysis)
}

func (r UpdateRequest) apply(title *string, lang *Language, code *string, analysis *[]Issue) bool {
	changed := false
	if r.Title != nil && *r.Title != *title {
		*title = *r.Title
		changed = true
	}
	if r.Language != nil && *r.Language != *lang {
		*lang = *r.Language
		changed = true
	}
	if r.Code != nil && *r.Code != *code {
		*code = *r.Code
		changed = true
	}
	if r.Analysis != nil {
		*analysis = append([]Issue(nil), (*r.Analysis)...)
		changed = true
	}
	return changed
}
