package types

import "github.com/m-mizutani/goerr/v2"

// RelationKind identifies a many-to-many relationship table
type RelationKind string

const (
	RelationRiskControl     RelationKind = "risk_control"
	RelationPolicyControl   RelationKind = "policy_control"
	RelationPolicyStatement RelationKind = "policy_statement"
)

// AllRelationKinds returns all valid relation kinds
func AllRelationKinds() []RelationKind {
	return []RelationKind{
		RelationRiskControl,
		RelationPolicyControl,
		RelationPolicyStatement,
	}
}

// Sides returns the entity kinds stored on the left and right of the relation
func (k RelationKind) Sides() (left, right EntityKind) {
	switch k {
	case RelationRiskControl:
		return EntityRisk, EntityControl
	case RelationPolicyControl:
		return EntityPolicy, EntityControl
	case RelationPolicyStatement:
		return EntityPolicy, EntityPolicyStatement
	default:
		return "", ""
	}
}

// IsValid checks if the relation kind is valid
func (k RelationKind) IsValid() bool {
	switch k {
	case RelationRiskControl, RelationPolicyControl, RelationPolicyStatement:
		return true
	default:
		return false
	}
}

// String returns the string representation of the relation kind
func (k RelationKind) String() string {
	return string(k)
}

// ParseRelationKind parses a string into a RelationKind
func ParseRelationKind(s string) (RelationKind, error) {
	k := RelationKind(s)
	if !k.IsValid() {
		return "", goerr.New("invalid relation kind", goerr.V("value", s))
	}
	return k, nil
}
