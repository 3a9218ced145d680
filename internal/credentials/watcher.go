package credentials

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opsdash/agent-usage-tui/internal/logger"
)

// Watcher invalidates a resolver when the secrets file changes on disk, so
// credential rotation takes effect without restarting the dashboard.
type Watcher struct {
	mu            sync.Mutex
	resolver      *Resolver
	filePath      string
	watcher       *fsnotify.Watcher
	debounceTimer *time.Timer
	onReload      func()
	stopChan      chan struct{}
}

// NewWatcher starts watching the secrets file at path. onReload, if non-nil,
// is called after each invalidation (used to trigger a dashboard refresh).
func NewWatcher(resolver *Resolver, path string, onReload func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		resolver: resolver,
		filePath: path,
		watcher:  fsWatcher,
		onReload: onReload,
		stopChan: make(chan struct{}),
	}

	// Watch the directory (to catch file creation/deletion)
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, err
	}

	go w.watchLoop()
	return w, nil
}

// watchLoop handles file system events with debouncing.
func (w *Watcher) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only care about the secrets file itself
			if filepath.Base(event.Name) != filepath.Base(w.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				// Debounce rapid changes
				w.mu.Lock()
				if w.debounceTimer != nil {
					w.debounceTimer.Stop()
				}
				w.debounceTimer = time.AfterFunc(debounceInterval, w.handleFileChange)
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("secrets watcher error", "error", err)

		case <-w.stopChan:
			return
		}
	}
}

// handleFileChange drops the cached resolution after an external change.
func (w *Watcher) handleFileChange() {
	logger.Info("secrets file changed, re-resolving credentials", "path", w.filePath)
	w.resolver.Invalidate()
	if w.onReload != nil {
		w.onReload()
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stopChan)
	return w.watcher.Close()
}
