package types

import "github.com/m-mizutani/goerr/v2"

// RiskState represents the lifecycle state of a risk
type RiskState string

const (
	RiskStateDraft   RiskState = "draft"
	RiskStateAssess  RiskState = "assess"
	RiskStateTreat   RiskState = "treat"
	RiskStateMonitor RiskState = "monitor"
	RiskStateClosed  RiskState = "closed"
)

// AllRiskStates returns all valid risk states
func AllRiskStates() []RiskState {
	return []RiskState{
		RiskStateDraft,
		RiskStateAssess,
		RiskStateTreat,
		RiskStateMonitor,
		RiskStateClosed,
	}
}

// IsValid checks if the risk state is valid
func (s RiskState) IsValid() bool {
	switch s {
	case RiskStateDraft,
		RiskStateAssess,
		RiskStateTreat,
		RiskStateMonitor,
		RiskStateClosed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk state
func (s RiskState) String() string {
	return string(s)
}

// ParseRiskState parses a string into a RiskState
func ParseRiskState(s string) (RiskState, error) {
	state := RiskState(s)
	if !state.IsValid() {
		return "", goerr.New("invalid risk state", goerr.V("value", s))
	}
	return state, nil
}
