package types

import "github.com/m-mizutani/goerr/v2"

// TaskState represents the state of a GRC task
type TaskState string

const (
	TaskStateOpen           TaskState = "open"
	TaskStateWorkInProgress TaskState = "work_in_progress"
	TaskStateClosed         TaskState = "closed"
	TaskStateCancelled      TaskState = "cancelled"
)

// AllTaskStates returns all valid task states
func AllTaskStates() []TaskState {
	return []TaskState{
		TaskStateOpen,
		TaskStateWorkInProgress,
		TaskStateClosed,
		TaskStateCancelled,
	}
}

// IsValid checks if the task state is valid
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStateOpen,
		TaskStateWorkInProgress,
		TaskStateClosed,
		TaskStateCancelled:
		return true
	default:
		return false
	}
}

// IsFinished reports whether no more work is expected on the task
func (s TaskState) IsFinished() bool {
	return s == TaskStateClosed || s == TaskStateCancelled
}

// String returns the string representation of the task state
func (s TaskState) String() string {
	return string(s)
}

// ParseTaskState parses a string into a TaskState
func ParseTaskState(s string) (TaskState, error) {
	state := TaskState(s)
	if !state.IsValid() {
		return "", goerr.New("invalid task state", goerr.V("value", s))
	}
	return state, nil
}
