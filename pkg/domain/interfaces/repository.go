package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Repository is the entity store the rule engine reads and writes through
type Repository interface {
	Risk() RiskRepository
	Control() ControlRepository
	TestResult() TestResultRepository
	Issue() IssueRepository
	Task() TaskRepository
	Policy() PolicyRepository
	PolicyStatement() PolicyStatementRepository
	Assessment() AssessmentRepository
	Relation() RelationRepository

	// Exists reports whether ref currently resolves to a stored entity
	Exists(ctx context.Context, ref model.Ref) (bool, error)
}

// Store is the common CRUD contract shared by every entity table
type Store[T any] interface {
	// Create stores a new entity. An empty ID is generated. Version is set to 1.
	Create(ctx context.Context, v *T) (*T, error)

	// Get retrieves an entity by ID. Missing rows return model.ErrNotFound.
	Get(ctx context.Context, id string) (*T, error)

	// List retrieves entities ordered by ID
	List(ctx context.Context, opts ...ListOption) ([]*T, error)

	// Update writes v if its Version still matches the stored one and
	// returns the stored copy with the incremented Version. A mismatch
	// returns model.ErrConflict.
	Update(ctx context.Context, v *T, opts ...WriteOption) (*T, error)

	// Delete removes an entity by ID
	Delete(ctx context.Context, id string) error
}

type RiskRepository interface {
	Store[model.Risk]
}

type ControlRepository interface {
	Store[model.Control]

	// ListActive retrieves active controls ordered by ID
	ListActive(ctx context.Context, opts ...ListOption) ([]*model.Control, error)
}

type TestResultRepository interface {
	Store[model.TestResult]

	// ListRecent retrieves up to limit active results of a control, newest first
	ListRecent(ctx context.Context, controlID string, limit int) ([]*model.TestResult, error)
}

type IssueRepository interface {
	Store[model.Issue]

	// ListOpenBySource retrieves issues of source that are not closed
	ListOpenBySource(ctx context.Context, source model.Ref) ([]*model.Issue, error)

	// CountOpenBySource counts issues of source that are not closed
	CountOpenBySource(ctx context.Context, source model.Ref) (int, error)
}

type TaskRepository interface {
	Store[model.Task]

	// ListOverdue retrieves unfinished tasks due before now, earliest due first
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error)
}

type PolicyRepository interface {
	Store[model.Policy]
}

type PolicyStatementRepository interface {
	Store[model.PolicyStatement]
}

type AssessmentRepository interface {
	Store[model.Assessment]
}

type RelationRepository interface {
	Store[model.Relation]

	// ListByKind retrieves relation rows of one kind ordered by ID
	ListByKind(ctx context.Context, kind types.RelationKind, opts ...ListOption) ([]*model.Relation, error)

	// ListByRef retrieves relation rows of kind where ref is on either side
	ListByRef(ctx context.Context, kind types.RelationKind, ref model.Ref) ([]*model.Relation, error)
}
