package types

import "github.com/m-mizutani/goerr/v2"

// SweepKind identifies a scheduled sweep
type SweepKind string

const (
	SweepCompliance   SweepKind = "compliance"
	SweepOverdueTasks SweepKind = "overdue_tasks"
	SweepOrphans      SweepKind = "orphans"
)

func AllSweepKinds() []SweepKind {
	return []SweepKind{SweepCompliance, SweepOverdueTasks, SweepOrphans}
}

// IsValid checks if the sweep kind is valid
func (k SweepKind) IsValid() bool {
	switch k {
	case SweepCompliance, SweepOverdueTasks, SweepOrphans:
		return true
	default:
		return false
	}
}

func (k SweepKind) String() string {
	return string(k)
}

// ParseSweepKind parses a string into a SweepKind
func ParseSweepKind(s string) (SweepKind, error) {
	k := SweepKind(s)
	if !k.IsValid() {
		return "", goerr.New("invalid sweep kind", goerr.V("value", s))
	}
	return k, nil
}
