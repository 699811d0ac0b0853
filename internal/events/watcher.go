package events

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cerno/internal/logging"
)

// Watcher watches a set of project roots for context-file changes and
// publishes TopicFileChanged once a file settles past a debounce window,
// the same create/write/debounce-ticker shape as the teacher's directory
// watcher.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	bus         *Bus
	debounceMap map[string]time.Time
	debounceDur time.Duration
	pattern     string

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a Watcher publishing onto bus. pattern is a
// filepath.Match glob (e.g. "*.md"); debounce defaults to 500ms if <= 0.
func NewWatcher(bus *Bus, pattern string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		bus:         bus,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		pattern:     pattern,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// AddRoot recursively adds dir and its subdirectories to the watch set.
func (w *Watcher) AddRoot(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable subtrees
		}
		if info.IsDir() {
			if addErr := w.watcher.Add(path); addErr != nil {
				logging.EventsWarn("watcher: failed to add %s: %v", path, addErr)
			}
		}
		return nil
	})
}

// Start runs the watcher's event loop in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop halts the event loop and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.EventsError("watcher error: %v", err)
		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.pattern != "" {
		if match, _ := filepath.Match(w.pattern, filepath.Base(ev.Name)); !match {
			return
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	w.mu.Lock()
	w.debounceMap[ev.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		logging.EventsDebug("file settled, publishing %s: %s", TopicFileChanged, path)
		w.bus.Publish(TopicFileChanged, FileChangedPayload{Path: path})
	}
}
