// Package watch reports changes to individual files as fileChanged events.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docker/themekit/pkg/themes/events"
)

// DefaultDebounce groups the bursts of events editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher watches files through their parent directories so that atomic
// saves (write to a temp file, then rename) are seen. Changes are debounced
// per file and dropped when the path no longer names a regular file.
type Watcher struct {
	publisher events.Publisher
	debounce  time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]int
	timers  map[string]*time.Timer
	closed  bool
	done    chan struct{}
}

func New(publisher events.Publisher, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		publisher: publisher,
		debounce:  DefaultDebounce,
		watcher:   fw,
		files:     make(map[string]bool),
		dirs:      make(map[string]int),
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.watchLoop()
	return w, nil
}

// Add starts watching path. Adding a path twice is a no-op.
func (w *Watcher) Add(path string) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fsnotify.ErrClosed
	}
	if w.files[path] {
		return nil
	}

	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path] = true

	slog.Debug("Started watching file", "path", path)
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[path] {
		return nil
	}
	delete(w.files, path)
	if t := w.timers[path]; t != nil {
		t.Stop()
		delete(w.timers, path)
	}

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if w.closed {
		return nil
	}
	return w.watcher.Remove(dir)
}

// Files returns the watched paths.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	return files
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Write and Create cover direct saves and the rename target of
			// atomic saves; Remove and Rename cover files being replaced.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[path] {
		return
	}
	if t := w.timers[path]; t != nil {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	watched := !w.closed && w.files[path]
	w.mu.Unlock()

	if !watched {
		return
	}

	// After debounce, verify the file still exists before signaling
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		slog.Debug("Ignoring change to missing file or directory", "path", path)
		return
	}

	slog.Debug("File changed", "path", path)
	w.publisher.Publish(events.Event{Topic: events.TopicFileChanged, Path: path})
}
