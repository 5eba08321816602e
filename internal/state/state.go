// Package state holds the in-memory task collection and the pure
// transition function that is the only way to mutate it.
package state

import (
	"fmt"
	"sync"

	"github.com/romanslonov/todoapp/internal/model"
)

// State is the full in-memory task collection, newest first.
type State struct {
	Tasks []model.Task
}

// Apply computes the next state for an action. It is pure: the input
// state is never mutated, and the same (state, action) pair always
// yields the same result. Actions referencing an unknown task id leave
// the state unchanged.
func Apply(s State, a Action) State {
	switch a := a.(type) {
	case SetTasks:
		tasks := make([]model.Task, len(a.Tasks))
		copy(tasks, a.Tasks)
		return State{Tasks: tasks}

	case CreateTask:
		tasks := make([]model.Task, 0, len(s.Tasks)+1)
		tasks = append(tasks, a.Task)
		tasks = append(tasks, s.Tasks...)
		return State{Tasks: tasks}

	case ChangeStatusTask:
		tasks := make([]model.Task, len(s.Tasks))
		for i, t := range s.Tasks {
			if t.ID == a.TaskID {
				t.Status = a.Status
			}
			tasks[i] = t
		}
		return State{Tasks: tasks}

	case UpdateTask:
		tasks := make([]model.Task, len(s.Tasks))
		for i, t := range s.Tasks {
			if t.ID == a.TaskID {
				t = a.Data
				t.ID = a.TaskID
			}
			tasks[i] = t
		}
		return State{Tasks: tasks}

	case RemoveTask:
		tasks := make([]model.Task, 0, len(s.Tasks))
		for _, t := range s.Tasks {
			if t.ID != a.TaskID {
				tasks = append(tasks, t)
			}
		}
		return State{Tasks: tasks}

	default:
		// The Action interface is sealed, so this arm is unreachable in
		// correct code. Failing hard here catches regressions early.
		panic(fmt.Sprintf("state: unknown action type %T", a))
	}
}

// Store owns the current State and serializes all transitions.
// It is constructed once at the application root and handed by
// reference to whichever components need it.
type Store struct {
	mu    sync.Mutex
	state State
	subs  []chan State
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Dispatch applies an action and notifies subscribers with the new snapshot.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = Apply(s.state, a)
	snapshot := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
			continue
		default:
		}
		// The subscriber is behind. Replace the stale buffered snapshot
		// with the fresh one so a slow reader always sees the latest
		// state, never an older intermediate.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Tasks returns a copy of the current task list, newest first.
func (s *Store) Tasks() []model.Task {
	return s.Snapshot().Tasks
}

// Subscribe registers a channel that receives a state snapshot after
// every dispatch. Slow subscribers miss intermediate snapshots rather
// than blocking dispatch.
func (s *Store) Subscribe() <-chan State {
	ch := make(chan State, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) snapshotLocked() State {
	tasks := make([]model.Task, len(s.state.Tasks))
	copy(tasks, s.state.Tasks)
	return State{Tasks: tasks}
}
