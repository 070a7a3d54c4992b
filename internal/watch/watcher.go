// Package watch reports changes to requirement files under a directory tree.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harrison/cognitive/internal/fileutil"
)

// DefaultDebounce is how long a file must stay quiet before its change is reported.
const DefaultDebounce = 300 * time.Millisecond

// Op is the kind of change reported for a file.
type Op int

const (
	// Changed covers creation and writes; editors often do both for one save.
	Changed Op = iota
	// Removed covers deletion and renames away.
	Removed
)

// String returns a human-readable representation of the operation
func (op Op) String() string {
	switch op {
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled change to one watched file.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// Extensions limits events to these file types. Empty watches every file.
	Extensions []string
	// Debounce coalesces bursts of changes per file. Zero uses DefaultDebounce.
	Debounce time.Duration
}

// Watcher watches a directory tree. Hidden directories are not watched, so
// artifacts written to ".ai" never trigger events.
type Watcher struct {
	fsw     *fsnotify.Watcher
	root    string
	opts    Options
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// New starts watching root and every non-hidden directory below it.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root is not a directory: %s", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:     fsw,
		root:    root,
		opts:    opts,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Events returns the channel of settled file events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors. Errors are dropped when
// nobody reads them.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Run calls handle for every event until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, handle func(Event), onError func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case ev := <-w.events:
			handle(ev)
		case err := <-w.errors:
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Close stops the watcher. Pending debounced events are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil && !os.IsPermission(err) {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") {
				return
			}
			if err := w.addRecursive(path); err != nil {
				w.reportError(err)
			}
			return
		}
	}

	if strings.HasPrefix(filepath.Base(path), ".") || !fileutil.HasExtension(path, w.opts.Extensions) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.debounce(path, Changed)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.debounce(path, Removed)
	}
}

// debounce restarts the quiet period for path; the last op wins.
func (w *Watcher) debounce(path string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.events <- Event{Path: path, Op: op, Timestamp: time.Now()}:
		case <-w.done:
		}
	})
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}
