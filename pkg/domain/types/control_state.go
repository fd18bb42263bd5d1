package types

import "github.com/m-mizutani/goerr/v2"

// ControlState represents the lifecycle state of a compliance control
type ControlState string

const (
	ControlStateDraft         ControlState = "draft"
	ControlStateImplement     ControlState = "implement"
	ControlStateAssess        ControlState = "assess"
	ControlStateMonitor       ControlState = "monitor"
	ControlStateRetired       ControlState = "retired"
	ControlStateInactive      ControlState = "inactive"
	ControlStateNotApplicable ControlState = "not_applicable"
	ControlStateClosed        ControlState = "closed"
)

// AllControlStates returns all valid control states
func AllControlStates() []ControlState {
	return []ControlState{
		ControlStateDraft,
		ControlStateImplement,
		ControlStateAssess,
		ControlStateMonitor,
		ControlStateRetired,
		ControlStateInactive,
		ControlStateNotApplicable,
		ControlStateClosed,
	}
}

// IsValid checks if the control state is valid
func (s ControlState) IsValid() bool {
	switch s {
	case ControlStateDraft,
		ControlStateImplement,
		ControlStateAssess,
		ControlStateMonitor,
		ControlStateRetired,
		ControlStateInactive,
		ControlStateNotApplicable,
		ControlStateClosed:
		return true
	default:
		return false
	}
}

// IsInactive reports whether the state takes the control out of service.
// Open issues raised against an inactive control are closed by the cascade.
func (s ControlState) IsInactive() bool {
	switch s {
	case ControlStateRetired, ControlStateInactive, ControlStateNotApplicable:
		return true
	default:
		return false
	}
}

// String returns the string representation of the control state
func (s ControlState) String() string {
	return string(s)
}

// ParseControlState parses a string into a ControlState
func ParseControlState(s string) (ControlState, error) {
	state := ControlState(s)
	if !state.IsValid() {
		return "", goerr.New("invalid control state", goerr.V("value", s))
	}
	return state, nil
}
