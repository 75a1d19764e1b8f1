// Package watch re-runs a handler whenever a problem file under a directory
// tree is created or rewritten.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"plansynth/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// domainFile names the domain definition shared by problems in and below
// its directory.
const domainFile = "domain.pddl"

// Handler is invoked once per settled problem file change.
type Handler func(ctx context.Context, path string) error

// Watcher watches a directory tree for .pddl changes. Rapid successive
// writes to the same file are collapsed into one handler call.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	root        string
	handler     Handler
	debounceMap map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	started     bool
	stopOnce    sync.Once
	closeOnce   sync.Once

	stats Stats
}

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated  int
	FilesModified int
	DomainChanges int
	Handled       int
	Failed        int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// New creates a Watcher for root. A non-positive debounce uses 300ms.
func New(root string, debounce time.Duration, handler Handler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	tick := debounce / 3
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	if tick < 5*time.Millisecond {
		tick = 5 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		root:        root,
		handler:     handler,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		tick:        tick,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start adds root and its subdirectories to the watch list and begins
// processing events in a goroutine. A Watcher runs at most once.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.started = true
	w.mu.Unlock()
	logging.Watch("watching %s", w.root)

	go w.run(ctx)
	return nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		logging.WatchDebug("added %s", path)
		return nil
	})
}

// Stop stops the watcher and waits for the event loop to exit. It is safe
// to call more than once, and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	started := w.started
	w.running = false
	w.mu.Unlock()

	if started {
		w.stopOnce.Do(func() { close(w.stopCh) })
		<-w.doneCh
	}
	w.closeOnce.Do(func() {
		if err := w.watcher.Close(); err != nil {
			logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
		}
	})
	logging.WatchDebug("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchWarn("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.WatchWarn("failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if filepath.Ext(event.Name) != ".pddl" {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	default:
		return
	}
	logging.WatchDebug("%s event for %s", eventType, event.Name)

	if filepath.Base(event.Name) == domainFile {
		w.requeueProblems(filepath.Dir(event.Name))
		return
	}

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	if eventType == "create" {
		w.stats.FilesCreated++
	} else {
		w.stats.FilesModified++
	}
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// requeueProblems schedules every problem in dir and its non-hidden
// subdirectories after the domain there changed.
func (w *Watcher) requeueProblems(dir string) {
	var problems []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".pddl" && d.Name() != domainFile {
			problems = append(problems, path)
		}
		return nil
	})
	if err != nil {
		logging.WatchWarn("failed to scan %s after domain change: %v", dir, err)
	}
	logging.Watch("domain changed in %s, re-queueing %d problems", dir, len(problems))

	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.DomainChanges++
	w.stats.LastEventTime = now
	w.stats.LastEventPath = filepath.Join(dir, domainFile)
	w.stats.LastEventType = "domain"
	for _, p := range problems {
		w.debounceMap[p] = now
	}
}

// processDebounced runs the handler for files that have been quiet for the
// debounce window, in path order.
func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()
	sort.Strings(settled)

	for _, path := range settled {
		if _, err := os.Stat(path); err != nil {
			logging.WatchDebug("%s disappeared before it settled", path)
			continue
		}
		err := w.handler(ctx, path)
		w.mu.Lock()
		w.stats.Handled++
		if err != nil {
			w.stats.Failed++
		}
		w.mu.Unlock()
		if err != nil {
			logging.WatchWarn("%s: %v", path, err)
		}
	}
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	dirs := w.watcher.WatchList()
	sort.Strings(dirs)
	return dirs
}
