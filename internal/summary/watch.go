package summary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 100 * time.Millisecond

// Watch calls fn with the decoded summary each time the file at path is
// replaced, until ctx is done. The parent directory is watched because writers
// rename a temp file over the summary.
func Watch(ctx context.Context, path string, fn func(Summary)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
			} else {
				timer.Reset(debounceInterval)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read summary", "path", path, "error", err)
				continue
			}
			s, err := Decode(data)
			if err != nil {
				slog.Warn("ignoring unreadable summary", "path", path, "error", err)
				continue
			}
			fn(s)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("summary watcher error", "error", err)
		}
	}
}
