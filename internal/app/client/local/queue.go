package local

import (
	"time"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
)

type OpKind string

const (
	OpCreate      OpKind = "create"
	OpUpdate      OpKind = "update"
	OpDelete      OpKind = "delete"
	OpPreferences OpKind = "preferences"
)

// QueueEntry is one local mutation awaiting replay, in enqueue order.
//
// Snippet holds the snapshot at enqueue time. For updates Match is the
// title and language the snippet had before the change, so a rename can
// still be located remotely.
type QueueEntry struct {
	ID          string                `json:"id"`
	Kind        OpKind                `json:"type"`
	Snippet     *snippet.LocalSnippet `json:"snippet,omitempty"`
	Match       *snippet.Key          `json:"match,omitempty"`
	Preferences *LocalPreferences     `json:"preferences,omitempty"`
	EnqueuedAt  time.Time             `json:"timestamp"`
}

// LocalID is the local snippet the entry belongs to, if any.
func (e QueueEntry) LocalID() string {
	if e.Snippet == nil {
		return ""
	}
	return e.Snippet.ID
}

type LocalPreferences struct {
	preferences.Preferences
	SyncStatus snippet.SyncStatus `json:"sync_status"`
}

// SyncMeta survives restarts so status can be reported by a fresh process.
type SyncMeta struct {
	LastSync   *time.Time `json:"last_sync,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	TotalSyncs int        `json:"total_syncs"`
	Uploaded   int        `json:"total_uploaded"`
	Downloaded int        `json:"total_downloaded"`
	Failed     int        `json:"total_failed"`
}
