package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aibuddies/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when another process rewrites or removes the
// session file, e.g. `aibuddies auth logout` while the dashboard is open.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	pending     bool
	lastEvent   time.Time
	debounceDur time.Duration

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Watch starts watching the session file's directory. The watcher stops when
// ctx is cancelled or Stop is called.
func (s *Store) Watch(ctx context.Context) (*Watcher, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The file itself comes and goes, so watch its directory.
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		store:       s,
		watcher:     fw,
		debounceDur: 150 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	go w.run(ctx)
	logging.SessionDebug("Watching %s", s.path)
	return w, nil
}

// Stop ends the watch and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		if err := w.watcher.Close(); err != nil {
			logging.SessionWarn("Closing session watcher: %v", err)
		}
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.store.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.lastEvent = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.SessionWarn("Session watcher error: %v", err)

		case <-ticker.C:
			w.mu.Lock()
			due := w.pending && time.Since(w.lastEvent) >= w.debounceDur
			if due {
				w.pending = false
			}
			w.mu.Unlock()
			if due {
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	sess, err := readSessionFile(w.store.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			// Half-written file; the next event will bring the final content.
			logging.SessionDebug("Session file not readable yet: %v", err)
			return
		}
		sess = nil
	}
	w.store.replace(sess)
}
