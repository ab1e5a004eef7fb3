package cli

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long the workspace must be quiet before a re-run.
const watchDebounce = 200 * time.Millisecond

// watchWorkspace calls onChange whenever a manifest or Rust source below
// dir changes, until ctx ends. Bursts of events within debounce collapse
// into one call. onChange runs on the calling goroutine.
func watchWorkspace(ctx context.Context, dir string, debounce time.Duration, logger *log.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, dir); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(event.Name, dir) {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						logger.Warn("could not watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("file changed", "file", event.Name, "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher,
// leaving out build output and hidden directories.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDir(path, dir) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func skipDir(path, root string) bool {
	if path == root {
		return false
	}
	name := filepath.Base(path)
	return name == "target" || strings.HasPrefix(name, ".")
}

// relevant reports whether an event can change the lint result.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return name == "Cargo.toml" || filepath.Ext(name) == ".rs"
}
