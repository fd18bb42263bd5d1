package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Ref is a typed reference to an entity in one of the known tables
type Ref struct {
	Kind types.EntityKind `json:"kind"`
	ID   string           `json:"id"`
}

func RiskRef(id string) Ref            { return Ref{Kind: types.EntityRisk, ID: id} }
func ControlRef(id string) Ref         { return Ref{Kind: types.EntityControl, ID: id} }
func TestResultRef(id string) Ref      { return Ref{Kind: types.EntityTestResult, ID: id} }
func IssueRef(id string) Ref           { return Ref{Kind: types.EntityIssue, ID: id} }
func TaskRef(id string) Ref            { return Ref{Kind: types.EntityTask, ID: id} }
func PolicyRef(id string) Ref          { return Ref{Kind: types.EntityPolicy, ID: id} }
func PolicyStatementRef(id string) Ref { return Ref{Kind: types.EntityPolicyStatement, ID: id} }
func AssessmentRef(id string) Ref      { return Ref{Kind: types.EntityAssessment, ID: id} }

// Validate checks the reference names a known kind and a non-empty ID
func (r Ref) Validate() error {
	if !r.Kind.IsValid() {
		return goerr.Wrap(ErrValidation, "unknown entity kind", goerr.V(EntityKindKey, r.Kind))
	}
	if r.ID == "" {
		return goerr.Wrap(ErrValidation, "entity ID is empty", goerr.V(EntityKindKey, r.Kind))
	}
	return nil
}

// IsZero reports whether the reference is unset
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

func (r Ref) String() string {
	return r.Kind.String() + ":" + r.ID
}
