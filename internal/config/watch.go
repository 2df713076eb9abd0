package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/dispatch/internal/log"
)

// DefaultDebounce coalesces editor write bursts into one reload signal.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a config file and signals after changes settle.
// Editors typically replace files on save, so the parent directory is
// watched and events are filtered to the config file's name.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	path        string
	debounceDur time.Duration
	done        chan struct{}
}

// NewWatcher creates a watcher for the config file at path.
// debounce <= 0 uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &Watcher{
		fsWatcher:   fsWatcher,
		path:        path,
		debounceDur: debounce,
		done:        make(chan struct{}),
	}, nil
}

// Start begins watching and returns a channel that receives a signal
// whenever the config file changes, debounced. The channel is buffered;
// a signal that arrives while the caller is still reloading is dropped
// rather than queued.
func (w *Watcher) Start() (<-chan struct{}, error) {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)

		var debounce *time.Timer
		var debounceCh <-chan time.Time

		for {
			select {
			case <-w.done:
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-w.fsWatcher.Events:
				if !ok {
					return
				}
				if !w.isRelevantEvent(event) {
					continue
				}
				log.Debug(log.CatConfig, "config file changed", "event", event.Op.String())
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.NewTimer(w.debounceDur)
				debounceCh = debounce.C

			case <-debounceCh:
				debounceCh = nil
				select {
				case changes <- struct{}{}:
				default:
				}

			case err, ok := <-w.fsWatcher.Errors:
				if !ok {
					return
				}
				log.ErrorErr(log.CatConfig, "config watcher error", err)
			}
		}
	}()

	log.Info(log.CatConfig, "watching config file", "path", w.path)
	return changes, nil
}

// Stop terminates the watcher and releases its resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)
}
