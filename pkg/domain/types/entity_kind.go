package types

import "github.com/m-mizutani/goerr/v2"

// EntityKind identifies a record table
type EntityKind string

const (
	EntityRisk            EntityKind = "risk"
	EntityControl         EntityKind = "control"
	EntityTestResult      EntityKind = "test_result"
	EntityIssue           EntityKind = "issue"
	EntityTask            EntityKind = "task"
	EntityPolicy          EntityKind = "policy"
	EntityPolicyStatement EntityKind = "policy_statement"
	EntityAssessment      EntityKind = "assessment"
)

// AllEntityKinds returns all valid entity kinds
func AllEntityKinds() []EntityKind {
	return []EntityKind{
		EntityRisk,
		EntityControl,
		EntityTestResult,
		EntityIssue,
		EntityTask,
		EntityPolicy,
		EntityPolicyStatement,
		EntityAssessment,
	}
}

// IsValid checks if the entity kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityRisk,
		EntityControl,
		EntityTestResult,
		EntityIssue,
		EntityTask,
		EntityPolicy,
		EntityPolicyStatement,
		EntityAssessment:
		return true
	default:
		return false
	}
}

// String returns the string representation of the entity kind
func (k EntityKind) String() string {
	return string(k)
}

// ParseEntityKind parses a string into an EntityKind
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.IsValid() {
		return "", goerr.New("invalid entity kind", goerr.V("value", s))
	}
	return k, nil
}
