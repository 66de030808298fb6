package engine

import (
	"time"

	"bugsentinel/internal/app/client/local"
)

// Result describes one sync pass.
type Result struct {
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Uploaded   int           `json:"uploaded" yaml:"uploaded"`
	Failed     int           `json:"failed" yaml:"failed"`
	Skipped    int           `json:"skipped" yaml:"skipped"`
	Orphaned   int           `json:"orphaned" yaml:"orphaned"`
	Downloaded int           `json:"downloaded" yaml:"downloaded"`
	Errors     []EntryError  `json:"errors,omitempty" yaml:"errors,omitempty"`
	// Error is set when the pass as a whole failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports a pass that failed neither as a whole nor for any entry.
func (r *Result) OK() bool {
	return r.Error == "" && r.Failed == 0
}

// EntryError is a queue entry that stayed queued after a pass.
type EntryError struct {
	EntryID   string       `json:"entry_id" yaml:"entry_id"`
	Kind      local.OpKind `json:"kind" yaml:"kind"`
	LocalID   string       `json:"local_id,omitempty" yaml:"local_id,omitempty"`
	Error     string       `json:"error" yaml:"error"`
	Transient bool         `json:"transient" yaml:"transient"`
}
