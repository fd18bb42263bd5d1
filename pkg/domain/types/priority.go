package types

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Priority ranks issues and tasks. 1 is the highest.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityModerate Priority = 3
	PriorityLow      Priority = 4
)

// IsValid checks if the priority is within 1..4
func (p Priority) IsValid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// Raise returns the priority one step more urgent, floored at PriorityCritical
func (p Priority) Raise() Priority {
	if p <= PriorityCritical {
		return PriorityCritical
	}
	return p - 1
}

// String returns the label of the priority
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityModerate:
		return "moderate"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority parses a priority number
func ParsePriority(n int) (Priority, error) {
	p := Priority(n)
	if !p.IsValid() {
		return 0, goerr.New("invalid priority", goerr.V("priority", n))
	}
	return p, nil
}
