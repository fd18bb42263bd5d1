package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Collection names
const (
	CollectionRisks            = "risks"
	CollectionControls         = "controls"
	CollectionTestResults      = "test_results"
	CollectionIssues           = "issues"
	CollectionTasks            = "tasks"
	CollectionPolicies         = "policies"
	CollectionPolicyStatements = "policy_statements"
	CollectionAssessments      = "assessments"
	CollectionRelations        = "relations"
)

type Firestore struct {
	client          *firestore.Client
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

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.risk.collectionPrefix = prefix
		f.control.collectionPrefix = prefix
		f.testResult.collectionPrefix = prefix
		f.issue.collectionPrefix = prefix
		f.task.collectionPrefix = prefix
		f.policy.collectionPrefix = prefix
		f.policyStatement.collectionPrefix = prefix
		f.assessment.collectionPrefix = prefix
		f.relation.collectionPrefix = prefix
	}
}

// New connects to Firestore. An empty databaseID uses the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:          client,
		risk:            &riskRepository{newCollection[model.Risk](client, CollectionRisks, types.EntityRisk)},
		control:         &controlRepository{newCollection[model.Control](client, CollectionControls, types.EntityControl)},
		testResult:      &testResultRepository{newCollection[model.TestResult](client, CollectionTestResults, types.EntityTestResult)},
		issue:           &issueRepository{newCollection[model.Issue](client, CollectionIssues, types.EntityIssue)},
		task:            &taskRepository{newCollection[model.Task](client, CollectionTasks, types.EntityTask)},
		policy:          &policyRepository{newCollection[model.Policy](client, CollectionPolicies, types.EntityPolicy)},
		policyStatement: &policyStatementRepository{newCollection[model.PolicyStatement](client, CollectionPolicyStatements, types.EntityPolicyStatement)},
		assessment:      &assessmentRepository{newCollection[model.Assessment](client, CollectionAssessments, types.EntityAssessment)},
		relation:        &relationRepository{newCollection[model.Relation](client, CollectionRelations, "relation")},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Risk() interfaces.RiskRepository {
	return f.risk
}

func (f *Firestore) Control() interfaces.ControlRepository {
	return f.control
}

func (f *Firestore) TestResult() interfaces.TestResultRepository {
	return f.testResult
}

func (f *Firestore) Issue() interfaces.IssueRepository {
	return f.issue
}

func (f *Firestore) Task() interfaces.TaskRepository {
	return f.task
}

func (f *Firestore) Policy() interfaces.PolicyRepository {
	return f.policy
}

func (f *Firestore) PolicyStatement() interfaces.PolicyStatementRepository {
	return f.policyStatement
}

func (f *Firestore) Assessment() interfaces.AssessmentRepository {
	return f.assessment
}

func (f *Firestore) Relation() interfaces.RelationRepository {
	return f.relation
}

func (f *Firestore) Exists(ctx context.Context, ref model.Ref) (bool, error) {
	switch ref.Kind {
	case types.EntityRisk:
		return f.risk.exists(ctx, ref.ID)
	case types.EntityControl:
		return f.control.exists(ctx, ref.ID)
	case types.EntityTestResult:
		return f.testResult.exists(ctx, ref.ID)
	case types.EntityIssue:
		return f.issue.exists(ctx, ref.ID)
	case types.EntityTask:
		return f.task.exists(ctx, ref.ID)
	case types.EntityPolicy:
		return f.policy.exists(ctx, ref.ID)
	case types.EntityPolicyStatement:
		return f.policyStatement.exists(ctx, ref.ID)
	case types.EntityAssessment:
		return f.assessment.exists(ctx, ref.ID)
	default:
		return false, goerr.Wrap(model.ErrValidation, "unknown entity kind", goerr.V(model.EntityKindKey, ref.Kind))
	}
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
