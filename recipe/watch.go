package recipe

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long the file has to stay quiet after a write
// before it is reloaded. A single save of an editor or os.WriteFile
// produces several events (truncate, write, chmod).
var WatchDebounce = 250 * time.Millisecond

// Watch calls onChange with the freshly loaded recipes every time path
// is written or recreated, until stop is closed. Bursts of events are
// collapsed into one reload. Files that fail to load are logged and
// skipped. The directory is watched rather than the file so editors
// that replace the file on save are seen too.
func Watch(path string, onChange func([]Recipe), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("can't watch %s: %w", path, err)
	}
	slog.Info("Watching recipe file", "path", abs)

	timer := time.NewTimer(WatchDebounce)
	timer.Stop()
	defer timer.Stop()
	var settled <-chan time.Time

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(WatchDebounce)
			settled = timer.C
		case <-settled:
			settled = nil
			recipes, err := LoadFile(abs)
			if err != nil {
				slog.Warn("Ignoring recipe file change", "error", err)
				continue
			}
			onChange(recipes)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}
