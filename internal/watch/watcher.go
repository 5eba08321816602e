// Package watch promotes active tasks to expired once their due date
// has passed. Each watched task owns exactly one timer handle, released
// deterministically whenever the task is edited, completed, or removed.
package watch

import (
	"sync"
	"time"

	"github.com/romanslonov/todoapp/internal/model"
)

// DefaultInterval is the default check granularity. Sub-second
// precision is not required for due dates entered by hand.
const DefaultInterval = time.Second

// ExpireFunc is invoked with a task id the first time a check finds its
// due date at or before now. It is expected to drive the status-change
// path; the watcher itself never touches task state.
type ExpireFunc func(taskID string)

// taskWatch is the timer handle for a single watched task.
type taskWatch struct {
	due  time.Time
	stop chan struct{}
}

// Watcher runs one recurring due-date check per watched task.
type Watcher struct {
	mu       sync.Mutex
	interval time.Duration
	expire   ExpireFunc
	watches  map[string]*taskWatch
	closed   bool

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Watcher that calls expire when a watched task's due
// date passes. A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration, expire ExpireFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		interval: interval,
		expire:   expire,
		watches:  make(map[string]*taskWatch),
		now:      time.Now,
	}
}

// Sync reconciles the watch set against the given tasks. Only active
// tasks with a due date are watched. Watches for tasks that are gone,
// no longer active, or whose due date changed are torn down before any
// replacement starts, so a stale timer can never fire against a task
// that has been edited or removed.
func (w *Watcher) Sync(tasks []model.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	desired := make(map[string]time.Time)
	for _, t := range tasks {
		if t.Status == model.StatusActive && t.Due != nil {
			desired[t.ID] = *t.Due
		}
	}

	for id, watch := range w.watches {
		due, ok := desired[id]
		if ok && due.Equal(watch.due) {
			continue
		}
		close(watch.stop)
		delete(w.watches, id)
	}

	for id, due := range desired {
		if _, ok := w.watches[id]; ok {
			continue
		}
		watch := &taskWatch{due: due, stop: make(chan struct{})}
		w.watches[id] = watch
		go w.run(id, watch)
	}
}

// Close tears down every watch. The watcher cannot be reused.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true

	for id, watch := range w.watches {
		close(watch.stop)
		delete(w.watches, id)
	}
}

// Watching reports whether a watch is currently held for the task id.
func (w *Watcher) Watching(taskID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watches[taskID]
	return ok
}

// run is the per-task check loop. On the first tick at or after the due
// time it releases the watch and invokes the expire callback, in that
// order, so the callback's own Sync never finds a stale handle.
func (w *Watcher) run(id string, watch *taskWatch) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-watch.stop:
			return
		case <-ticker.C:
			if w.now().Before(watch.due) {
				continue
			}
			if !w.release(id, watch) {
				return
			}
			w.expire(id)
			return
		}
	}
}

// release removes the watch if it is still the current handle for id.
// Returns false when the watch was already torn down by a Sync.
func (w *Watcher) release(id string, watch *taskWatch) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.watches[id]
	if !ok || current != watch {
		return false
	}
	delete(w.watches, id)
	return true
}
