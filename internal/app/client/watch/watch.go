// Package watch follows a file on disk and reports its settled content.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

const DefaultDebounce = 300 * time.Millisecond

type Watcher struct {
	path     string
	debounce time.Duration
	log      *slog.Logger
}

func New(path string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		log:      log.With("component", "watch", "path", abs),
	}, nil
}

// Run calls fn with the file content each time it changes and then stays
// unchanged for the debounce period. The directory is watched rather than
// the file so editors that replace the file on save are followed.
// Errors from fn are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context, fn func(content string) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	last, _ := os.ReadFile(w.path)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-timer.C:
			content, err := os.ReadFile(w.path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					w.log.Warn("read watched file", "error", err)
				}
				continue
			}
			if string(content) == string(last) {
				continue
			}
			last = content

			if err := fn(string(content)); err != nil {
				w.log.Warn("change handler failed", "error", err)
			}
		}
	}
}
