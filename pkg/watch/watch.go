// Package watch reports file changes under a set of paths.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skarllot/flow-pair/pkg/seed"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watch emits the sorted, absolute paths written or created under paths, batched until
// no event arrived for debounce. Directories are watched recursively. The channel is
// closed when ctx is done.
func Watch(ctx context.Context, debounce time.Duration, paths ...string) (<-chan []string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("could not resolve %s: %w", p, err)
		}
		if err := add(watcher, absPath); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	changes := make(chan []string, 1)
	go loop(ctx, watcher, debounce, changes)
	return changes, nil
}

// add watches a file, or a directory and every directory below it.
func add(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("could not watch %s: %w", root, err)
	}
	if !info.IsDir() {
		slog.Debug("Watching file", "file", root)
		return watcher.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && seed.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		slog.Debug("Watching directory", "dir", path)
		return watcher.Add(path)
	})
}

func loop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, changes chan<- []string) {
	defer watcher.Close()
	defer close(changes)

	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !seed.SkipDir(info.Name()) {
					if err := add(watcher, event.Name); err != nil {
						slog.Warn("Could not watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			pending[event.Name] = true
			timer.Reset(debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for name := range pending {
				batch = append(batch, name)
			}
			slices.Sort(batch)
			clear(pending)
			slog.Info("Change detected", "files", len(batch))
			select {
			case changes <- batch:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher encountered an error", "error", err)
		}
	}
}
