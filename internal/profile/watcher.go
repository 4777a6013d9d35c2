package profile

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joyrig/joyrig/internal/logging"
)

// DefaultDebounce is the quiet period a profile file must hold before a
// change is reported. Editors that save via truncate-then-write or
// rename-into-place emit bursts of filesystem events for a single save.
const DefaultDebounce = 250 * time.Millisecond

// reloadOps are the operations that indicate the profile content may have
// changed on disk.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// Watcher reports changes to a single profile file. It watches the parent
// directory rather than the file itself so that editors which replace the
// file (remove + create, or rename into place) are still observed.
type Watcher struct {
	mu sync.Mutex

	path string // absolute profile path
	base string // file name within the watched directory

	fs       *fsnotify.Watcher
	debounce time.Duration
	log      *logging.Logger

	events chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewWatcher starts watching the profile at path. A debounce of zero or
// less selects DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Null
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile path: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create profile watcher: %w", err)
	}

	dir := filepath.Dir(abs)
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		path:     abs,
		base:     filepath.Base(abs),
		fs:       fs,
		debounce: debounce,
		log:      log.WithComponent("profile-watcher"),
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched profile.
func (w *Watcher) Path() string {
	return w.path
}

// Events returns the change channel. Each receive means the profile file
// changed at least once since the previous receive; bursts within the
// debounce window coalesce into one notification. The channel is closed
// by Close.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and closes the events channel. It is safe to
// call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	// Wait for processLoop to finish before closing the events channel.
	w.wg.Wait()
	close(w.events)

	return w.fs.Close()
}

// processLoop consumes raw fsnotify events and debounces them into
// coalesced change notifications.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	// The timer starts stopped and armed only while a change is pending.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("profile changed: %s (%s)", ev.Name, ev.Op)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error: %v", err)

		case <-timer.C:
			w.notify()
		}
	}
}

// relevant reports whether a filesystem event concerns the profile file.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.base {
		return false
	}
	return ev.Op&reloadOps != 0
}

// notify signals a coalesced change without blocking. If a notification is
// already pending the new one folds into it.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
