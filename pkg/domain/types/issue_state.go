package types

import "github.com/m-mizutani/goerr/v2"

// IssueState represents the lifecycle state of a GRC issue
type IssueState string

const (
	IssueStateOpen    IssueState = "open"
	IssueStateAnalyze IssueState = "analyze"
	IssueStateRespond IssueState = "respond"
	IssueStateReview  IssueState = "review"
	IssueStateClosed  IssueState = "closed"
)

// AllIssueStates returns all valid issue states
func AllIssueStates() []IssueState {
	return []IssueState{
		IssueStateOpen,
		IssueStateAnalyze,
		IssueStateRespond,
		IssueStateReview,
		IssueStateClosed,
	}
}

// IsValid checks if the issue state is valid
func (s IssueState) IsValid() bool {
	switch s {
	case IssueStateOpen,
		IssueStateAnalyze,
		IssueStateRespond,
		IssueStateReview,
		IssueStateClosed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the issue state
func (s IssueState) String() string {
	return string(s)
}

// ParseIssueState parses a string into an IssueState
func ParseIssueState(s string) (IssueState, error) {
	state := IssueState(s)
	if !state.IsValid() {
		return "", goerr.New("invalid issue state", goerr.V("value", s))
	}
	return state, nil
}
