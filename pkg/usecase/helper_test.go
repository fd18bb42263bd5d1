package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/repository/memory"
	"github.com/secmon-lab/grcore/pkg/usecase"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, opts ...usecase.Option) (*usecase.UseCases, *memory.Memory) {
	t.Helper()
	repo := memory.New()
	opts = append([]usecase.Option{usecase.WithClock(func() time.Time { return testNow })}, opts...)
	uc, err := usecase.New(repo, opts...)
	gt.NoError(t, err).Required()
	return uc, repo
}

func createRisk(t *testing.T, repo *memory.Memory, fn func(r *model.Risk)) *model.Risk {
	t.Helper()
	r := model.NewRisk("RSK0001", "Unpatched servers")
	r.UpdatedBy = "alice"
	if fn != nil {
		fn(r)
	}
	created, err := repo.Risk().Create(context.Background(), r)
	gt.NoError(t, err).Required()
	return created
}

func createControl(t *testing.T, repo *memory.Memory, number string, state types.ControlState) *model.Control {
	t.Helper()
	c := model.NewControl(number, "Access review "+number)
	c.State = state
	created, err := repo.Control().Create(context.Background(), c)
	gt.NoError(t, err).Required()
	return created
}

func createIssue(t *testing.T, repo *memory.Memory, source model.Ref, state types.IssueState) *model.Issue {
	t.Helper()
	i := model.NewIssue(source, "follow up", types.PriorityModerate)
	i.State = state
	created, err := repo.Issue().Create(context.Background(), i)
	gt.NoError(t, err).Required()
	return created
}

func link(t *testing.T, repo *memory.Memory, kind types.RelationKind, left, right model.Ref) *model.Relation {
	t.Helper()
	rel, err := model.NewRelation(kind, left, right)
	gt.NoError(t, err).Required()
	created, err := repo.Relation().Create(context.Background(), rel)
	gt.NoError(t, err).Required()
	return created
}

func rulesWithManager(group types.GroupID, manager string) *config.Rules {
	rules := config.DefaultRules()
	for i := range rules.Assignment.Groups {
		if rules.Assignment.Groups[i].ID == group {
			rules.Assignment.Groups[i].Manager = manager
		}
	}
	return rules
}

func ptr[T any](v T) *T {
	return &v
}

func repoOf(uc *usecase.UseCases) interfaces.Repository {
	return usecase.RepositoryOf(uc)
}
