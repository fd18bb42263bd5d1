package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/repository/memory"
	"github.com/secmon-lab/grcore/pkg/usecase"
)

func recordResults(t *testing.T, repo *memory.Memory, controlID string, outcomes ...types.TestOutcome) {
	t.Helper()
	for i, o := range outcomes {
		at := testNow.Add(-time.Duration(len(outcomes)-i) * time.Hour)
		_, err := repo.TestResult().Create(context.Background(), model.NewTestResult(controlID, o, at))
		gt.NoError(t, err).Required()
	}
}

const (
	pass = types.TestOutcomePass
	fail = types.TestOutcomeFail
)

func TestEvaluateControl(t *testing.T) {
	ctx := context.Background()

	t.Run("non compliant raises exactly one issue", func(t *testing.T) {
		uc, repo := setup(t)
		control := createControl(t, repo, "CTL0100", types.ControlStateMonitor)
		recordResults(t, repo, control.ID, fail, fail, pass, fail, fail)

		result, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.B(t, result.Changed).True()
		gt.V(t, result.Previous).Equal(types.ComplianceNotAssessed)
		gt.V(t, result.Evaluation.Status).Equal(types.ComplianceNonCompliant)
		gt.V(t, result.Issue).NotNil()
		gt.V(t, result.Issue.ShortDescription).Equal("Control CTL0100 evaluated as Non-Compliant")
		gt.V(t, result.Issue.Priority).Equal(types.PriorityHigh)
		gt.V(t, result.Issue.Source).Equal(control.Ref())

		stored, err := repo.Control().Get(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.V(t, stored.ComplianceStatus).Equal(types.ComplianceNonCompliant)
		gt.V(t, stored.LastEvaluationDate).NotNil()
		gt.A(t, stored.WorkNotes).Length(1).Required()
		gt.V(t, stored.WorkNotes[0].Body).Equal(`Compliance status automatically updated from "not_assessed" to "non_compliant" by periodic evaluation.`)

		// Second run sees the same results and writes nothing
		again, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.B(t, again.Changed).False()
		gt.V(t, again.Issue).Nil()

		after, err := repo.Control().Get(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.V(t, after.Version).Equal(stored.Version)

		n, err := uc.Compliance.OpenIssueCount(ctx, control.Ref())
		gt.NoError(t, err).Required()
		gt.V(t, n).Equal(1)
	})

	t.Run("only the newest window of results counts", func(t *testing.T) {
		uc, repo := setup(t)
		control := createControl(t, repo, "CTL0101", types.ControlStateMonitor)
		recordResults(t, repo, control.ID, fail, fail, fail, pass, pass, pass, pass, pass)

		result, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.V(t, result.Evaluation.Status).Equal(types.ComplianceCompliant)
		gt.V(t, result.Evaluation.Total).Equal(5)
		gt.V(t, result.Issue).Nil()
	})

	t.Run("partially compliant raises no issue", func(t *testing.T) {
		uc, repo := setup(t)
		control := createControl(t, repo, "CTL0102", types.ControlStateMonitor)
		recordResults(t, repo, control.ID, pass, fail, pass, fail, pass)

		result, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.V(t, result.Evaluation.Status).Equal(types.CompliancePartiallyCompliant)
		gt.V(t, result.Issue).Nil()
	})

	t.Run("missing control", func(t *testing.T) {
		uc, _ := setup(t)
		_, err := uc.Compliance.EvaluateControl(ctx, "nope")
		gt.Error(t, err).Is(model.ErrNotFound)
	})
}

// faultRepo rejects issue inserts or control updates while the flags are set
type faultRepo struct {
	*memory.Memory
	issues   *faultIssues
	controls *faultControls
}

type faultIssues struct {
	interfaces.IssueRepository
	failCreate bool
}

func (f *faultIssues) Create(ctx context.Context, v *model.Issue) (*model.Issue, error) {
	if f.failCreate {
		return nil, goerr.Wrap(model.ErrStoreWrite, "store rejected insert")
	}
	return f.IssueRepository.Create(ctx, v)
}

type faultControls struct {
	interfaces.ControlRepository
	failUpdate bool
}

func (f *faultControls) Update(ctx context.Context, v *model.Control, opts ...interfaces.WriteOption) (*model.Control, error) {
	if f.failUpdate {
		return nil, goerr.Wrap(model.ErrStoreWrite, "store rejected update")
	}
	return f.ControlRepository.Update(ctx, v, opts...)
}

func newFaultRepo() *faultRepo {
	mem := memory.New()
	return &faultRepo{
		Memory:   mem,
		issues:   &faultIssues{IssueRepository: mem.Issue()},
		controls: &faultControls{ControlRepository: mem.Control()},
	}
}

func (r *faultRepo) Issue() interfaces.IssueRepository     { return r.issues }
func (r *faultRepo) Control() interfaces.ControlRepository { return r.controls }

func TestEvaluateControl_WriteFailures(t *testing.T) {
	ctx := context.Background()

	setupFault := func(t *testing.T) (*usecase.UseCases, *faultRepo, *model.Control) {
		t.Helper()
		repo := newFaultRepo()
		uc, err := usecase.New(repo, usecase.WithClock(func() time.Time { return testNow }))
		gt.NoError(t, err).Required()

		control := createControl(t, repo.Memory, "CTL0300", types.ControlStateMonitor)
		recordResults(t, repo.Memory, control.ID, fail, fail, fail, fail, fail)
		return uc, repo, control
	}

	t.Run("failed issue insert keeps the status for the next run", func(t *testing.T) {
		uc, repo, control := setupFault(t)

		repo.issues.failCreate = true
		_, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.Error(t, err).Is(model.ErrStoreWrite)

		stored, err := repo.Control().Get(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.V(t, stored.ComplianceStatus).Equal(types.ComplianceNotAssessed)
		gt.A(t, stored.WorkNotes).Length(0)

		repo.issues.failCreate = false
		result, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.B(t, result.Changed).True()
		gt.V(t, result.Issue).NotNil()

		n, err := repo.Issue().CountOpenBySource(ctx, control.Ref())
		gt.NoError(t, err).Required()
		gt.V(t, n).Equal(1)
	})

	t.Run("failed status write withdraws the issue", func(t *testing.T) {
		uc, repo, control := setupFault(t)

		repo.controls.failUpdate = true
		_, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.Error(t, err).Is(model.ErrStoreWrite)

		issues, err := repo.Issue().List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, issues).Length(0)

		repo.controls.failUpdate = false
		result, err := uc.Compliance.EvaluateControl(ctx, control.ID)
		gt.NoError(t, err).Required()
		gt.V(t, result.Issue).NotNil()

		issues, err = repo.Issue().List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, issues).Length(1)
	})
}

func TestEvaluateAll(t *testing.T) {
	ctx := context.Background()
	uc, repo := setup(t)

	bad := createControl(t, repo, "CTL0200", types.ControlStateMonitor)
	recordResults(t, repo, bad.ID, fail, fail, fail)
	good := createControl(t, repo, "CTL0201", types.ControlStateMonitor)
	recordResults(t, repo, good.ID, pass, pass)
	createControl(t, repo, "CTL0202", types.ControlStateMonitor) // no results

	inactive := model.NewControl("CTL0203", "Inactive")
	inactive.Active = false
	_, err := repo.Control().Create(ctx, inactive)
	gt.NoError(t, err).Required()
	recordResults(t, repo, inactive.ID, fail)

	summary, err := uc.Compliance.EvaluateAll(ctx, 0)
	gt.NoError(t, err).Required()
	gt.V(t, summary.Processed).Equal(3)
	gt.V(t, summary.Changed).Equal(2)
	gt.V(t, summary.Skipped).Equal(1)
	gt.V(t, summary.IssuesRaised).Equal(1)

	summary, err = uc.Compliance.EvaluateAll(ctx, 0)
	gt.NoError(t, err).Required()
	gt.V(t, summary.Changed).Equal(0)
	gt.V(t, summary.IssuesRaised).Equal(0)

	issues, err := repo.Issue().List(ctx)
	gt.NoError(t, err).Required()
	gt.A(t, issues).Length(1)

	t.Run("limit", func(t *testing.T) {
		summary, err := uc.Compliance.EvaluateAll(ctx, 2)
		gt.NoError(t, err).Required()
		gt.V(t, summary.Processed).Equal(2)
	})
}
