package devwallet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the session whenever another process logs in or out with the same home, and
// emits the change. It blocks until ctx is done or the watcher fails.
func (w *Wallet) Watch(ctx context.Context) error {
	if err := os.MkdirAll(w.config.Home, 0o700); err != nil {
		return fmt.Errorf("failed to create wallet home: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.Home); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.config.Home, err)
	}
	// the session may have changed before the watch was in place
	w.reload()

	target := filepath.Clean(sessionPath(w.config.Home))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.lggr.Warnw("Session watcher failed", "err", err)
			w.Fail(err)

			return fmt.Errorf("session watcher failed: %w", err)
		}
	}
}
