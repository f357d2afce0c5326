// Package watcher publishes change notifications for content files so
// open editors can offer a reload when a document changes on disk.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/event"
	"github.com/inkwell-md/inkwell/internal/logging"
	"github.com/inkwell-md/inkwell/internal/pathguard"
)

const (
	// DefaultDebounce collapses the event bursts editors and the
	// store's atomic replace produce for a single logical change.
	DefaultDebounce = 200 * time.Millisecond

	// rearmInitialInterval is the first wait before re-adding a
	// watched directory that briefly disappeared.
	rearmInitialInterval = 50 * time.Millisecond
	// rearmMaxElapsedTime bounds how long a vanished directory is
	// polled before the watch is given up.
	rearmMaxElapsedTime = 5 * time.Second
)

// Options control which files produce notifications.
type Options struct {
	// Roots are directories to watch, recursively.
	Roots []string
	// Extensions allow-lists file extensions (pathguard semantics).
	Extensions []string
	// Ignore holds doublestar globs; matching paths are silent.
	Ignore []string
	// Debounce is the per-file quiet window before publishing.
	Debounce time.Duration
}

// Watcher watches content roots with fsnotify and publishes
// watch.changed events for eligible documents.
type Watcher struct {
	fsw  *fsnotify.Watcher
	opts Options
	log  zerolog.Logger

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool

	mu      sync.Mutex
	dirs    map[string]bool
	timers  map[string]*time.Timer
	pending map[string]string
}

// New creates a watcher over the given roots. Returns nil if no roots
// are configured, in which case watching is disabled.
func New(opts Options) (*Watcher, error) {
	if len(opts.Roots) == 0 {
		log := logging.Component("watcher")
		log.Debug().Msg("no content roots, watcher disabled")
		return nil, nil
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		opts:    opts,
		log:     logging.Component("watcher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		dirs:    make(map[string]bool),
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]string),
	}

	for _, root := range opts.Roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
	}

	w.log.Info().Strs("roots", opts.Roots).Msg("watcher initialized")
	return w, nil
}

// Start begins delivering notifications.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
		delete(w.pending, path)
	}
	w.mu.Unlock()

	select {
	case <-w.stopCh:
		// Already stopped
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}
	return w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
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
			w.log.Error().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	name := filepath.Clean(ev.Name)

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addDir(name); err != nil {
				w.log.Warn().Str("dir", name).Err(err).Msg("cannot watch new directory")
			}
			return
		}
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.isWatchedDir(name) {
		w.forgetDir(name)
		go w.rearm(name)
		return
	}

	if !w.eligible(name) {
		return
	}
	w.schedule(name, opString(ev.Op))
}

// eligible filters out temp files from the store's atomic replace,
// disallowed extensions, and ignored paths.
func (w *Watcher) eligible(path string) bool {
	if docstore.IsTempPath(path) {
		return false
	}
	if !pathguard.AllowedExtension(path, w.opts.Extensions) {
		return false
	}
	base := filepath.Base(path)
	for _, pattern := range w.opts.Ignore {
		if ok, err := doublestar.PathMatch(pattern, path); err == nil && ok {
			return false
		}
		if ok, err := doublestar.PathMatch(pattern, base); err == nil && ok {
			return false
		}
	}
	return true
}

// schedule arms (or re-arms) the per-file debounce timer. The last
// observed op wins when a burst collapses.
func (w *Watcher) schedule(path, op string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = op
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	op, ok := w.pending[path]
	delete(w.pending, path)
	delete(w.timers, path)
	w.mu.Unlock()
	if !ok {
		return
	}

	w.log.Debug().Str("path", path).Str("op", op).Msg("file changed")
	event.PublishSync(event.Event{
		Type: event.WatchChanged,
		Data: event.WatchChangedData{Path: path, Op: op},
	})
}

// rearm re-adds a watched directory that disappeared, polling with
// exponential backoff while a build or sync step recreates it.
func (w *Watcher) rearm(dir string) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rearmInitialInterval
	b.MaxElapsedTime = rearmMaxElapsedTime

	err := backoff.Retry(func() error {
		select {
		case <-w.stopCh:
			return backoff.Permanent(errors.New("watcher stopped"))
		default:
		}
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return backoff.Permanent(fmt.Errorf("%s: not a directory", dir))
		}
		return w.addTree(dir)
	}, b)
	if err != nil {
		w.log.Debug().Str("dir", dir).Err(err).Msg("watch not re-armed")
	} else {
		w.log.Debug().Str("dir", dir).Msg("watch re-armed")
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.addDir(path)
		}
		return nil
	})
}

func (w *Watcher) addDir(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[dir] = true
	w.mu.Unlock()
	return nil
}

func (w *Watcher) isWatchedDir(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[name]
}

func (w *Watcher) forgetDir(name string) {
	w.mu.Lock()
	delete(w.dirs, name)
	w.mu.Unlock()
}

func opString(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "write"
	}
}
