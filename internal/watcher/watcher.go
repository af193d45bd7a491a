// Package watcher watches a local drop folder and reports files that are
// ready to upload.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Event is a file in the drop folder that settled after being written.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher watches one directory, non-recursively.
type Watcher struct {
	dir        string
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	stopOnce   sync.Once
	delay      time.Duration
	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a path is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// New creates a watcher for dir. dir must exist.
func New(dir string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "watch", Path: dir, Err: os.ErrInvalid}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:        dir,
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 100),
		done:       make(chan struct{}),
		delay:      DefaultDebounce,
		debounce:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Events returns the channel of settled files.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}
	go w.processEvents()
	slog.Info("watching drop folder", "dir", w.dir)
	return nil
}

// Stop stops the watcher and cancels pending debounces.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.debounceMu.Lock()
		for path, timer := range w.debounce {
			timer.Stop()
			delete(w.debounce, path)
		}
		w.debounceMu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			slog.Debug("fsnotify event", "op", event.Op.String(), "path", event.Name)
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Atomic writes (write tmp, rename over target) show up as Create or
	// Rename on the final name.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	if ignored(filepath.Base(event.Name)) {
		return
	}
	w.debounceEvent(event.Name, func() {
		w.emit(event.Name, event.Op)
	})
}

func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(w.delay, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()
		fn()
	})
}

func (w *Watcher) emit(path string, op fsnotify.Op) {
	// A rename away from this name leaves nothing to upload.
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	select {
	case w.eventsChan <- Event{Path: path, Op: op}:
	case <-w.done:
	}
}

// ignored skips dotfiles and common editor or partial-download artifacts.
func ignored(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".swp", ".part", ".crdownload":
		return true
	}
	return false
}

// Result reports one upload attempt made by Forward.
type Result struct {
	Path string
	Err  error
}

// Forward calls upload for every settled file until ctx is done or the
// watcher stops. report, when non-nil, receives each attempt's result.
func Forward(ctx context.Context, w *Watcher, upload func(ctx context.Context, path string) error, report func(Result)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev := <-w.Events():
			err := upload(ctx, ev.Path)
			if err != nil {
				slog.Warn("drop folder upload failed", "path", ev.Path, "err", err)
			} else {
				slog.Info("drop folder upload", "path", ev.Path)
			}
			if report != nil {
				report(Result{Path: ev.Path, Err: err})
			}
		}
	}
}
