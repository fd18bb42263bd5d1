package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is the in-process entity store. It is the default backend and
// the one used by tests.
type Memory struct {
	risk            *riskRepository
	control         *controlRepository
	testResult      *testResultRepository
	issue           *issueRepository
	task            *taskRepository
	policy          *policyRepository
	policyStatement *policyStatementRepository
	assessment      *assessmentRepository
	relation        *relationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		risk:            newRiskRepository(),
		control:         newControlRepository(),
		testResult:      newTestResultRepository(),
		issue:           newIssueRepository(),
		task:            newTaskRepository(),
		policy:          newPolicyRepository(),
		policyStatement: newPolicyStatementRepository(),
		assessment:      newAssessmentRepository(),
		relation:        newRelationRepository(),
	}
}

func (m *Memory) Risk() interfaces.RiskRepository {
	return m.risk
}

func (m *Memory) Control() interfaces.ControlRepository {
	return m.control
}

func (m *Memory) TestResult() interfaces.TestResultRepository {
	return m.testResult
}

func (m *Memory) Issue() interfaces.IssueRepository {
	return m.issue
}

func (m *Memory) Task() interfaces.TaskRepository {
	return m.task
}

func (m *Memory) Policy() interfaces.PolicyRepository {
	return m.policy
}

func (m *Memory) PolicyStatement() interfaces.PolicyStatementRepository {
	return m.policyStatement
}

func (m *Memory) Assessment() interfaces.AssessmentRepository {
	return m.assessment
}

func (m *Memory) Relation() interfaces.RelationRepository {
	return m.relation
}

func (m *Memory) Exists(ctx context.Context, ref model.Ref) (bool, error) {
	switch ref.Kind {
	case types.EntityRisk:
		return m.risk.exists(ref.ID), nil
	case types.EntityControl:
		return m.control.exists(ref.ID), nil
	case types.EntityTestResult:
		return m.testResult.exists(ref.ID), nil
	case types.EntityIssue:
		return m.issue.exists(ref.ID), nil
	case types.EntityTask:
		return m.task.exists(ref.ID), nil
	case types.EntityPolicy:
		return m.policy.exists(ref.ID), nil
	case types.EntityPolicyStatement:
		return m.policyStatement.exists(ref.ID), nil
	case types.EntityAssessment:
		return m.assessment.exists(ref.ID), nil
	default:
		return false, goerr.Wrap(model.ErrValidation, "unknown entity kind", goerr.V(model.EntityKindKey, ref.Kind))
	}
}
