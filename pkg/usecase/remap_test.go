package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/repository/memory"
	"github.com/secmon-lab/grcore/pkg/usecase"
)

var legacyCategories = map[string]string{
	"it_risk":     "technology",
	"vendor_risk": "third_party",
	"fin_risk":    "financial",
	"legal_risk":  "compliance",
}

// seedCategories creates six risks, four of which carry a legacy category
func seedCategories(t *testing.T, repo *memory.Memory) []*model.Risk {
	t.Helper()
	var risks []*model.Risk
	for _, c := range []types.CategoryID{"it_risk", "vendor_risk", "fin_risk", "legal_risk", "technology", "strategic"} {
		risks = append(risks, createRisk(t, repo, func(r *model.Risk) {
			r.Category = c
			r.Likelihood, r.Impact = 3, 3
		}))
	}
	return risks
}

func TestOnBulkRemap(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run counts candidates and writes nothing", func(t *testing.T) {
		uc, repo := setup(t)
		risks := seedCategories(t, repo)

		result, err := uc.Cascade.OnBulkRemap(ctx, usecase.RemapRequest{
			Target:  types.RemapRiskCategory,
			Mapping: legacyCategories,
		})
		gt.NoError(t, err).Required()
		gt.B(t, result.DryRun).True()
		gt.V(t, result.Summary).Equal(model.Summary{Processed: 6, Updated: 4, Skipped: 2})

		for _, r := range risks {
			stored, err := repo.Risk().Get(ctx, r.ID)
			gt.NoError(t, err).Required()
			gt.V(t, stored.Version).Equal(int64(1))
			gt.V(t, stored.Category).Equal(r.Category)
		}
	})

	t.Run("apply rewrites mapped rows without running the pipeline", func(t *testing.T) {
		uc, repo := setup(t)
		risks := seedCategories(t, repo)

		result, err := uc.Cascade.OnBulkRemap(ctx, usecase.RemapRequest{
			Target:        types.RemapRiskCategory,
			Mapping:       legacyCategories,
			Apply:         true,
			PreserveAudit: true,
		})
		gt.NoError(t, err).Required()
		gt.B(t, result.DryRun).False()
		gt.V(t, result.Summary).Equal(model.Summary{Processed: 6, Updated: 4, Skipped: 2})
		gt.V(t, result.NextCursor).Equal("")

		for _, r := range risks {
			stored, err := repo.Risk().Get(ctx, r.ID)
			gt.NoError(t, err).Required()

			to, mapped := legacyCategories[r.Category.String()]
			if !mapped {
				gt.V(t, stored.Version).Equal(int64(1))
				continue
			}
			gt.V(t, stored.Category).Equal(types.CategoryID(to))
			gt.V(t, stored.UpdatedBy).Equal("alice")
			gt.V(t, stored.UpdatedAt).Equal(r.UpdatedAt)
			gt.V(t, stored.AssignmentGroup).Equal(types.GroupID(""))
			gt.V(t, stored.Score).Equal(0)
			gt.A(t, stored.WorkNotes).Length(1).Required()
			gt.V(t, stored.WorkNotes[0].Body).Equal(`Category remapped from "` + r.Category.String() + `" to "` + to + `" by bulk remap.`)
		}

		again, err := uc.Cascade.OnBulkRemap(ctx, usecase.RemapRequest{
			Target:  types.RemapRiskCategory,
			Mapping: legacyCategories,
			Apply:   true,
		})
		gt.NoError(t, err).Required()
		gt.V(t, again.Summary.Updated).Equal(0)
		gt.V(t, again.Summary.Skipped).Equal(6)
	})

	t.Run("batch limit and cursor", func(t *testing.T) {
		uc, repo := setup(t)
		seedCategories(t, repo)

		req := usecase.RemapRequest{
			Target:     types.RemapRiskCategory,
			Mapping:    legacyCategories,
			BatchLimit: 4,
			Apply:      true,
		}
		first, err := uc.Cascade.OnBulkRemap(ctx, req)
		gt.NoError(t, err).Required()
		gt.V(t, first.Summary.Processed).Equal(4)
		gt.V(t, first.NextCursor).NotEqual("")

		req.StartAfter = first.NextCursor
		second, err := uc.Cascade.OnBulkRemap(ctx, req)
		gt.NoError(t, err).Required()
		gt.V(t, second.Summary.Processed).Equal(2)
		gt.V(t, second.NextCursor).Equal("")
		gt.V(t, first.Summary.Updated+second.Summary.Updated).Equal(4)
	})

	t.Run("task assignment group", func(t *testing.T) {
		uc, repo := setup(t)
		task := createTask(t, repo, "TSK100", 0, func(t *model.Task) { t.AssignmentGroup = "old_team" })

		result, err := uc.Cascade.OnBulkRemap(ctx, usecase.RemapRequest{
			Target:  types.RemapTaskAssignmentGroup,
			Mapping: map[string]string{"old_team": "compliance_team"},
			Apply:   true,
			Actor:   "migration",
		})
		gt.NoError(t, err).Required()
		gt.V(t, result.Summary.Updated).Equal(1)

		stored, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.V(t, stored.AssignmentGroup).Equal(types.GroupID("compliance_team"))
		gt.V(t, stored.UpdatedBy).Equal("migration")
	})

	t.Run("invalid request", func(t *testing.T) {
		uc, _ := setup(t)
		_, err := uc.Cascade.OnBulkRemap(ctx, usecase.RemapRequest{Target: "risk.owner", Mapping: map[string]string{"a": "b"}})
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestRunRemapTable(t *testing.T) {
	ctx := context.Background()
	rules := config.DefaultRules()
	rules.Remaps = []config.RemapTable{{
		Name:    "legacy-categories",
		Target:  types.RemapRiskCategory,
		Mapping: legacyCategories,
	}}
	uc, repo := setup(t, usecase.WithRules(rules))
	seedCategories(t, repo)

	result, err := uc.Cascade.RunRemapTable(ctx, "legacy-categories", false, "ops", "")
	gt.NoError(t, err).Required()
	gt.B(t, result.DryRun).True()
	gt.V(t, result.Summary.Updated).Equal(4)

	_, err = uc.Cascade.RunRemapTable(ctx, "missing", false, "ops", "")
	gt.Error(t, err).Is(usecase.ErrUnknownRemapTable)
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := usecase.RetryOnConflict(ctx, func() error {
		calls++
		if calls < 3 {
			return model.ErrConflict
		}
		return nil
	})
	gt.NoError(t, err)
	gt.V(t, calls).Equal(3)

	calls = 0
	err = usecase.RetryOnConflict(ctx, func() error {
		calls++
		return model.ErrConflict
	})
	gt.Error(t, err).Is(model.ErrConflict)
	gt.V(t, calls).Equal(3)

	calls = 0
	err = usecase.RetryOnConflict(ctx, func() error {
		calls++
		return model.ErrNotFound
	})
	gt.Error(t, err).Is(model.ErrNotFound)
	gt.V(t, calls).Equal(1)
}
