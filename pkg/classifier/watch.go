package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the rules file into k whenever it changes, until ctx is done.
// A file that fails to parse is logged and the previous table stays active.
// The parent directory is watched so editors that replace the file are covered.
func Watch(ctx context.Context, path string, k *Keyword, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("invalid rules path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	go func() {
		defer watcher.Close()
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					debounce = time.After(reloadDebounce)
				}
			case <-debounce:
				debounce = nil
				table, err := LoadRules(abs)
				if err != nil {
					logger.Warn("Keeping previous keyword rules", "path", abs, "err", err)
					continue
				}
				k.SetTable(table)
				logger.Info("Keyword rules reloaded", "path", abs, "rules", len(table.rules))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Rules watcher error", "err", err)
			}
		}
	}()
	return nil
}
