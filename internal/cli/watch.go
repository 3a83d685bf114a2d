package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events before
// re-running. Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// documentWatcher reports changes to a single document file.
//
// It watches the file's directory rather than the file so that editors
// which save by renaming a temp file over the original keep triggering.
type documentWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// newDocumentWatcher starts watching path. Events that happen after it
// returns are delivered by Run.
func newDocumentWatcher(path string, logger *slog.Logger) (*documentWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &documentWatcher{
		path:     abs,
		watcher:  w,
		debounce: DefaultDebounce,
		logger:   logger,
	}, nil
}

// Close stops watching.
func (w *documentWatcher) Close() error {
	return w.watcher.Close()
}

// Run calls onChange once per debounced burst of changes to the document.
// It returns when ctx is done or the watcher is closed.
func (w *documentWatcher) Run(ctx context.Context, onChange func(context.Context)) {
	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("document changed", "path", event.Name, "op", event.Op.String())

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			onChange(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// relevant reports whether event may have changed the document contents.
func (w *documentWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
