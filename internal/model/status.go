package model

// Status represents the lifecycle state of a task.
type Status string

const (
	// StatusActive is the initial state of every task.
	StatusActive Status = "active"

	// StatusCompleted marks a task the user has checked off.
	StatusCompleted Status = "completed"

	// StatusExpired marks an active task whose due date has passed.
	StatusExpired Status = "expired"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusActive, StatusCompleted, StatusExpired}
}

// transitions defines the allowed status transitions.
// A task toggles between active and completed; expiry is one-way:
// once a task is expired it never returns to active through normal flow.
var transitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusExpired},
	StatusCompleted: {StatusActive},
	StatusExpired:   {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusExpired:
		return true
	default:
		return false
	}
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusCompleted:
		return "Completed"
	case StatusExpired:
		return "Expired"
	default:
		return string(s)
	}
}
