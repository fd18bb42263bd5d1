package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

const evaluationActor = "system:compliance"

// EvaluationResult is the outcome of evaluating one control
type EvaluationResult struct {
	ControlID  string
	Previous   types.ComplianceStatus
	Evaluation model.ComplianceEvaluation
	Changed    bool
	Issue      *model.Issue
}

// EvaluationSummary is returned by EvaluateAll
type EvaluationSummary struct {
	model.Summary
	Changed      int
	IssuesRaised int
}

// ComplianceUseCase evaluates controls against their recent test results
type ComplianceUseCase struct {
	repo      interfaces.Repository
	evaluator *model.ComplianceEvaluator
	now       func() time.Time
}

func NewComplianceUseCase(repo interfaces.Repository, evaluator *model.ComplianceEvaluator, now func() time.Time) *ComplianceUseCase {
	return &ComplianceUseCase{repo: repo, evaluator: evaluator, now: now}
}

// EvaluateControl recomputes the compliance status of a control. Nothing is
// written when the status is unchanged. A change to non_compliant raises
// one issue against the control.
func (uc *ComplianceUseCase) EvaluateControl(ctx context.Context, controlID string) (*EvaluationResult, error) {
	var result *EvaluationResult

	err := retryOnConflict(ctx, func() error {
		control, err := uc.repo.Control().Get(ctx, controlID)
		if err != nil {
			return err
		}

		recent, err := uc.repo.TestResult().ListRecent(ctx, controlID, uc.evaluator.Window())
		if err != nil {
			return goerr.Wrap(err, "failed to list test results")
		}

		eval := uc.evaluator.Evaluate(recent)
		result = &EvaluationResult{
			ControlID:  controlID,
			Previous:   control.ComplianceStatus,
			Evaluation: eval,
		}
		if eval.Status == control.ComplianceStatus {
			return nil
		}

		now := uc.now()
		control.AddWorkNote(evaluationActor,
			fmt.Sprintf("Compliance status automatically updated from %q to %q by periodic evaluation.",
				control.ComplianceStatus, eval.Status),
			now)
		control.ComplianceStatus = eval.Status
		control.LastEvaluationDate = &now
		control.UpdatedBy = evaluationActor

		// Issue first: a failed insert must leave the status unchanged.
		var issue *model.Issue
		if eval.Status == types.ComplianceNonCompliant {
			draft := model.NewIssue(control.Ref(),
				fmt.Sprintf("Control %s evaluated as %s", control.Number, eval.Status.Label()),
				types.PriorityHigh)
			draft.UpdatedBy = evaluationActor
			issue, err = uc.repo.Issue().Create(ctx, draft)
			if err != nil {
				return goerr.Wrap(err, "failed to raise issue")
			}
		}

		if _, err := uc.repo.Control().Update(ctx, control); err != nil {
			if issue != nil {
				uc.withdrawIssue(ctx, issue)
			}
			return err
		}
		result.Changed = true
		result.Issue = issue
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate control", goerr.V(ControlIDKey, controlID))
	}

	if result.Changed {
		logging.From(ctx).Info("control compliance status changed",
			"control_id", controlID,
			"from", result.Previous,
			"to", result.Evaluation.Status,
			"pass_rate", result.Evaluation.PassRate)
	}
	return result, nil
}

// withdrawIssue removes an issue whose status write did not land
func (uc *ComplianceUseCase) withdrawIssue(ctx context.Context, issue *model.Issue) {
	if err := uc.repo.Issue().Delete(ctx, issue.ID); err != nil {
		logging.From(ctx).Error("failed to withdraw compliance issue",
			"issue_id", issue.ID,
			"control_id", issue.Source.ID,
			"error", err)
	}
}

// EvaluateAll evaluates active controls, at most limit of them when limit
// is positive. Failures of one control are logged and counted.
func (uc *ComplianceUseCase) EvaluateAll(ctx context.Context, limit int) (*EvaluationSummary, error) {
	logger := logging.From(ctx)
	summary := &EvaluationSummary{}

	cursor := ""
	for {
		pageSize := relationPageSize
		if limit > 0 && limit-summary.Processed < pageSize {
			pageSize = limit - summary.Processed
		}
		if pageSize <= 0 {
			break
		}

		controls, err := uc.repo.Control().ListActive(ctx,
			interfaces.WithStartAfter(cursor),
			interfaces.WithLimit(pageSize))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list active controls")
		}

		for _, c := range controls {
			summary.Processed++
			result, err := uc.EvaluateControl(ctx, c.ID)
			if err != nil {
				logger.Error("failed to evaluate control", "control_id", c.ID, "error", err)
				summary.Errored++
				continue
			}
			if !result.Changed {
				summary.Skipped++
				continue
			}
			summary.Updated++
			summary.Changed++
			if result.Issue != nil {
				summary.IssuesRaised++
			}
		}

		if len(controls) < pageSize {
			break
		}
		cursor = controls[len(controls)-1].ID
	}

	logger.Info("compliance evaluation finished",
		"processed", summary.Processed,
		"changed", summary.Changed,
		"issues_raised", summary.IssuesRaised,
		"errored", summary.Errored)

	return summary, nil
}

// OpenIssueCount returns how many issues raised against the source are not closed
func (uc *ComplianceUseCase) OpenIssueCount(ctx context.Context, source model.Ref) (int, error) {
	if err := source.Validate(); err != nil {
		return 0, err
	}
	n, err := uc.repo.Issue().CountOpenBySource(ctx, source)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count open issues", goerr.V(SourceKey, source.String()))
	}
	return n, nil
}
