// Package watch implements a recursive fsnotify watcher exposing a
// blocking Wait and an explicit Disregard/Regard suppression bracket.
// Grounded on pkg/fswatch/watcher.go (recursive add/remove-watch over
// fsnotify, event channel fan-out), with the suppression mechanism
// generalized from that file's and internal/client/sync/file_watcher.go's
// timeout-based IgnoreOnce into an explicit bracket: a path stays
// suppressed until the matching Regard call, not until a timer expires.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	ErrClosed     = errors.New("watcher closed")
	ErrNotDirRoot = errors.New("watch root does not exist or is not a directory")
)

// Status classifies a watch event.
type Status int

const (
	StatusCreated Status = iota
	StatusModified
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one filesystem change delivered by Wait.
type Event struct {
	Path     string
	Modified int64
	Status   Status
}

// Watcher recursively watches a directory subtree and delivers
// create/modify/delete events, while letting the sync engine silence
// events for paths it is about to write itself.
type Watcher struct {
	fsw *fsnotify.Watcher

	events chan Event

	mu        sync.Mutex
	suppress  map[string]int // refcount: overlapping disregards on the same path are allowed
	closed    bool
	closeOnce sync.Once
}

// New creates a Watcher with no roots added yet.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		events:   make(chan Event, 64),
		suppress: make(map[string]int),
	}
	go w.loop()
	return w, nil
}

// AddWatch registers root (and, if recursive, every subdirectory beneath
// it) for change notification.
func (w *Watcher) AddWatch(root string, recursive bool) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return ErrNotDirRoot
	}

	if !recursive {
		return w.fsw.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Wait blocks until the next unsuppressed event is available, or the
// watcher is closed.
func (w *Watcher) Wait() (Event, error) {
	ev, ok := <-w.events
	if !ok {
		return Event{}, ErrClosed
	}
	return ev, nil
}

// Disregard suppresses events for absPath until the matching Regard call.
// Overlapping disregards on distinct paths may proceed concurrently;
// nested disregards on the same path are reference-counted so the
// innermost Regard does not re-enable events too early.
func (w *Watcher) Disregard(absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suppress[absPath]++
}

// Regard ends one layer of suppression for absPath. It must be called
// exactly once per matching Disregard.
func (w *Watcher) Regard(absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.suppress[absPath] <= 1 {
		delete(w.suppress, absPath)
		return
	}
	w.suppress[absPath]--
}

func (w *Watcher) isSuppressed(absPath string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.suppress[absPath] > 0
}

// Close shuts down the underlying fsnotify watcher and the event channel.
// It is idempotent and causes any blocked Wait to fail with ErrClosed.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) {
		return
	}

	if w.isSuppressed(ev.Name) {
		return
	}

	status, modified := w.classify(ev)
	select {
	case w.events <- Event{Path: ev.Name, Modified: modified, Status: status}:
	default:
		// Channel full: drop rather than block the fsnotify goroutine.
	}

	if status == StatusCreated {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
		}
	}
	if status == StatusDeleted {
		_ = w.fsw.Remove(ev.Name)
	}
}

func (w *Watcher) classify(ev fsnotify.Event) (Status, int64) {
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return StatusDeleted, time.Now().Unix()
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		// File vanished between the event and the stat; treat as deleted.
		return StatusDeleted, time.Now().Unix()
	}

	if ev.Has(fsnotify.Create) {
		return StatusCreated, info.ModTime().Unix()
	}
	return StatusModified, info.ModTime().Unix()
}
