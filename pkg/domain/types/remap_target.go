package types

import "github.com/m-mizutani/goerr/v2"

// RemapTarget names the entity field a bulk remap rewrites
type RemapTarget string

const (
	RemapRiskCategory        RemapTarget = "risk.category"
	RemapRiskAssignmentGroup RemapTarget = "risk.assignment_group"
	RemapTaskAssignmentGroup RemapTarget = "task.assignment_group"
)

// IsValid checks if the remap target is supported
func (t RemapTarget) IsValid() bool {
	switch t {
	case RemapRiskCategory, RemapRiskAssignmentGroup, RemapTaskAssignmentGroup:
		return true
	default:
		return false
	}
}

// Entity returns the entity kind the target field belongs to
func (t RemapTarget) Entity() EntityKind {
	switch t {
	case RemapRiskCategory, RemapRiskAssignmentGroup:
		return EntityRisk
	case RemapTaskAssignmentGroup:
		return EntityTask
	default:
		return ""
	}
}

func (t RemapTarget) String() string {
	return string(t)
}

// ParseRemapTarget parses a string into a RemapTarget
func ParseRemapTarget(s string) (RemapTarget, error) {
	t := RemapTarget(s)
	if !t.IsValid() {
		return "", goerr.New("invalid remap target", goerr.V("value", s))
	}
	return t, nil
}
