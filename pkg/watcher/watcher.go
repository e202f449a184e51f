// Package watcher reports changes to a set of files, coalescing bursts of
// filesystem events into a single notification.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/olimci/fiberforge/pkg/utils/set"
)

// Event is sent once the watched files have been quiet for the debounce
// interval after a change.
type Event struct {
	Reason string
	Paths  []string
}

// New watches files. Their parent directories are watched rather than the
// files themselves, so editors that save by renaming a new file into place
// are still seen.
func New(debounce time.Duration, files ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	watcher := &Watcher{
		Events:   make(chan Event, 1),
		Errors:   make(chan error, 16),
		watcher:  w,
		debounce: debounce,
		files:    set.New[string](),
		dirs:     set.New[string](),
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		watcher.files.Add(abs)
		watcher.dirs.Add(filepath.Dir(abs))
	}

	return watcher, nil
}

type Watcher struct {
	Events chan Event
	Errors chan error

	watcher  *fsnotify.Watcher
	debounce time.Duration

	files *set.Set[string]
	dirs  *set.Set[string]
}

// Run watches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range w.dirs.Values() {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending = set.New[string]()
	)

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || !w.files.Has(filepath.Clean(ev.Name)) {
				continue
			}
			pending.Add(filepath.Clean(ev.Name))
			resetTimer()

		case <-timerCh:
			timer = nil
			timerCh = nil
			if pending.Len() == 0 {
				continue
			}
			paths := set.Sorted(pending)
			pending.Clear()
			lazySend(w.Events, Event{
				Reason: fmt.Sprintf("file change (%s quiet)", w.debounce),
				Paths:  paths,
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			lazySend(w.Errors, fmt.Errorf("watch error: %w", err))
		}
	}
}

func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}
