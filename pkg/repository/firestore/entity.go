package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type riskRepository struct {
	*collection[model.Risk, *model.Risk]
}

type policyRepository struct {
	*collection[model.Policy, *model.Policy]
}

type policyStatementRepository struct {
	*collection[model.PolicyStatement, *model.PolicyStatement]
}

type assessmentRepository struct {
	*collection[model.Assessment, *model.Assessment]
}

type controlRepository struct {
	*collection[model.Control, *model.Control]
}

func (r *controlRepository) ListActive(ctx context.Context, opts ...interfaces.ListOption) ([]*model.Control, error) {
	return r.page(ctx, r.ref().Where("Active", "==", true), opts...)
}

type testResultRepository struct {
	*collection[model.TestResult, *model.TestResult]
}

func (r *testResultRepository) ListRecent(ctx context.Context, controlID string, limit int) ([]*model.TestResult, error) {
	q := r.ref().
		Where("ControlID", "==", controlID).
		Where("Active", "==", true).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.query(ctx, q)
}

type issueRepository struct {
	*collection[model.Issue, *model.Issue]
}

func (r *issueRepository) openBySource(source model.Ref) firestore.Query {
	open := make([]string, 0, 4)
	for _, s := range types.AllIssueStates() {
		if s != types.IssueStateClosed {
			open = append(open, s.String())
		}
	}
	return r.ref().
		Where("Source.Kind", "==", source.Kind.String()).
		Where("Source.ID", "==", source.ID).
		Where("State", "in", open)
}

func (r *issueRepository) ListOpenBySource(ctx context.Context, source model.Ref) ([]*model.Issue, error) {
	return r.query(ctx, r.openBySource(source))
}

func (r *issueRepository) CountOpenBySource(ctx context.Context, source model.Ref) (int, error) {
	q := r.openBySource(source)
	res, err := q.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count open issues", goerr.V("source", source.String()))
	}

	v, ok := res["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count result type", goerr.V("source", source.String()))
	}
	return int(v.GetIntegerValue()), nil
}

type taskRepository struct {
	*collection[model.Task, *model.Task]
}

// ListOverdue queries by due date only; finished tasks are filtered while
// iterating so the query needs just the single-field index.
func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	iter := r.ref().
		Where("DueDate", "<", now).
		OrderBy("DueDate", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	tasks := []*model.Task{}
	for limit <= 0 || len(tasks) < limit {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate overdue tasks")
		}

		task, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		if task.State.IsFinished() {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

type relationRepository struct {
	*collection[model.Relation, *model.Relation]
}

func (r *relationRepository) ListByKind(ctx context.Context, kind types.RelationKind, opts ...interfaces.ListOption) ([]*model.Relation, error) {
	return r.page(ctx, r.ref().Where("Kind", "==", kind.String()), opts...)
}

func (r *relationRepository) ListByRef(ctx context.Context, kind types.RelationKind, ref model.Ref) ([]*model.Relation, error) {
	seen := make(map[string]struct{})
	var result []*model.Relation

	for _, side := range []string{"Left", "Right"} {
		rows, err := r.query(ctx, r.ref().
			Where("Kind", "==", kind.String()).
			Where(side+".Kind", "==", ref.Kind.String()).
			Where(side+".ID", "==", ref.ID))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list relations by ref",
				goerr.V("kind", kind),
				goerr.V("ref", ref.String()))
		}
		for _, rel := range rows {
			if _, ok := seen[rel.ID]; ok {
				continue
			}
			seen[rel.ID] = struct{}{}
			result = append(result, rel)
		}
	}

	if result == nil {
		result = []*model.Relation{}
	}
	return result, nil
}
