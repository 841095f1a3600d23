// Package watch re-runs tools when JavaScript sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of file system
// events to settle before reporting them.
const DefaultDebounce = 100 * time.Millisecond

// Event reports the files changed during one debounce window.
type Event struct {
	// Files are the changed files.
	Files []string

	// Affected lists the targets to process again. A changed target is
	// affected itself; a changed shared file affects every target.
	Affected []string
}

// Watcher watches target files, shared dependencies such as prelude scripts
// and config files, and directory trees where new targets may appear.
type Watcher struct {
	// mu protects targets, shared, trees and dirs.
	mu sync.RWMutex

	fsWatcher *fsnotify.Watcher

	targets map[string]bool
	shared  map[string]bool

	// trees are directories added by the caller; files created below them
	// become targets when they pass the filter.
	trees map[string]bool

	// dirs are the directories registered with fsWatcher.
	dirs map[string]bool

	filter   func(path string) bool
	debounce time.Duration

	// Events channel receives debounced change notifications.
	Events chan Event

	// Errors channel receives watcher errors.
	Errors chan error

	done chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithFilter restricts the files picked up from watched directories.
func WithFilter(filter func(path string) bool) Option {
	return func(w *Watcher) { w.filter = filter }
}

// New creates a watcher.
func New(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		targets:   make(map[string]bool),
		shared:    make(map[string]bool),
		trees:     make(map[string]bool),
		dirs:      make(map[string]bool),
		filter:    func(string) bool { return true },
		debounce:  DefaultDebounce,
		Events:    make(chan Event, 16),
		Errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()

	return w, nil
}

// Add watches path. A file becomes a target. A directory is watched
// recursively and every file in it that passes the filter becomes a target.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addTree(absPath)
	}
	if err := w.watchDir(filepath.Dir(absPath)); err != nil {
		return err
	}
	w.targets[absPath] = true
	return nil
}

// AddShared watches a file whose changes affect every target.
func (w *Watcher) AddShared(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}
	if err := w.watchDir(filepath.Dir(absPath)); err != nil {
		return err
	}
	w.shared[absPath] = true
	return nil
}

// Remove stops treating path as a target or shared file.
func (w *Watcher) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	delete(w.targets, absPath)
	delete(w.shared, absPath)
	return nil
}

// addTree must be called with mu held.
func (w *Watcher) addTree(root string) error {
	w.trees[root] = true
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.trees[path] = true
			return w.watchDir(path)
		}
		if w.filter(path) {
			w.targets[path] = true
		}
		return nil
	})
}

// watchDir must be called with mu held.
func (w *Watcher) watchDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Targets returns the watched targets, sorted.
func (w *Watcher) Targets() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make([]string, 0, len(w.targets))
	for f := range w.targets {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// Affected returns the targets to process again after files changed.
func (w *Watcher) Affected(files ...string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	set := make(map[string]bool)
	for _, file := range files {
		absPath, _ := filepath.Abs(file)
		if w.shared[absPath] {
			for t := range w.targets {
				set[t] = true
			}
		}
		if w.targets[absPath] {
			set[absPath] = true
		}
	}
	affected := make([]string, 0, len(set))
	for t := range set {
		affected = append(affected, t)
	}
	slices.Sort(affected)
	return affected
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// run processes filesystem events, reporting them once no new event has
// arrived for the debounce window.
func (w *Watcher) run() {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if w.track(event) {
				pending[filepath.Clean(event.Name)] = true
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			slices.Sort(files)
			pending = make(map[string]bool)

			ev := Event{Files: files, Affected: w.Affected(files...)}
			if len(ev.Affected) == 0 {
				continue
			}
			select {
			case w.Events <- ev:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

// track updates the watch set for event and reports whether the event is
// about a file of interest.
func (w *Watcher) track(event fsnotify.Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if event.Op&fsnotify.Create != 0 && w.trees[filepath.Dir(absPath)] {
		info, err := os.Stat(absPath)
		switch {
		case err != nil:
		case info.IsDir():
			if err := w.addTree(absPath); err != nil {
				select {
				case w.Errors <- err:
				default:
				}
			}
			return false
		case w.filter(absPath):
			w.targets[absPath] = true
		}
	}
	return w.targets[absPath] || w.shared[absPath]
}

// Loop calls onChange for every event until ctx is done. Watcher errors
// are passed to onError.
func Loop(ctx context.Context, w *Watcher, onChange func(Event), onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.Events:
			onChange(ev)
		case err := <-w.Errors:
			if onError != nil {
				onError(err)
			}
		}
	}
}
