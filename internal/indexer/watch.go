package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/metrics"
)

// DefaultDebounce is the quiet period after the last change before Watch
// runs an update.
const DefaultDebounce = 2 * time.Second

// Watch monitors the library and runs Update once changes settle for
// debounce. It returns when ctx is done.
func (idx *Indexer) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	count := idx.addDirectoriesToWatcher(watcher, idx.Root())
	logging.Info("Watching %d directories under %s", count, idx.Root())

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("File watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if idx.ignoreEvent(event) {
				continue
			}
			metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()
			logging.Debug("File event: %s %s", eventType(event.Op), event.Name)

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					idx.addDirectoriesToWatcher(watcher, event.Name)
				}
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			metrics.WatcherErrors.Inc()
			logging.Error("File watcher error: %v", err)

		case <-timer.C:
			if _, err := idx.Update(ctx); err != nil {
				if errors.Is(err, ErrUpdateRunning) {
					timer.Reset(debounce)
					continue
				}
				if ctx.Err() != nil {
					return nil
				}
				logging.Error("Update after file changes failed: %v", err)
			}
		}
	}
}

func (idx *Indexer) addDirectoriesToWatcher(watcher *fsnotify.Watcher, root string) int {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (name == database.IndexDirName || (idx.params.SkipHidden && strings.HasPrefix(name, "."))) {
			return filepath.SkipDir
		}
		if path != idx.Root() && !idx.params.Recursive {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			metrics.WatcherErrors.Inc()
			logging.Warn("Failed to watch %s: %v", path, err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Warn("Error adding directories to watcher: %v", err)
	}
	return count
}

// ignoreEvent drops events for the index itself and for hidden entries.
func (idx *Indexer) ignoreEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	rel, err := filepath.Rel(idx.Root(), event.Name)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == database.IndexDirName || (idx.params.SkipHidden && strings.HasPrefix(part, ".") && part != "." && part != "..") {
			return true
		}
	}
	return false
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "other"
	}
}
