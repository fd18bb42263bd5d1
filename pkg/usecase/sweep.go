package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

const sweepActor = "system:scheduler"

// SweepOptions controls one scheduled sweep. A zero Now means the current
// time, a zero Limit means no bound.
type SweepOptions struct {
	Now   time.Time
	Limit int
}

// SweepResult is returned by OnScheduledSweep. Compliance and Orphans are
// set only by their own sweep kind.
type SweepResult struct {
	Kind          types.SweepKind
	Summary       model.Summary
	Notifications []model.Notification
	Compliance    *EvaluationSummary
	Orphans       *CleanupReport
}

// OnScheduledSweep runs one periodic sweep
func (uc *CascadeUseCase) OnScheduledSweep(ctx context.Context, kind types.SweepKind, opts SweepOptions) (*SweepResult, error) {
	if opts.Now.IsZero() {
		opts.Now = uc.now()
	}
	ctx = logging.With(ctx, logging.From(ctx).With("sweep", kind.String()))

	result := &SweepResult{Kind: kind}
	switch kind {
	case types.SweepCompliance:
		summary, err := uc.compliance.EvaluateAll(ctx, opts.Limit)
		if err != nil {
			return nil, err
		}
		result.Compliance = summary
		result.Summary = summary.Summary

	case types.SweepOverdueTasks:
		if err := uc.sweepOverdueTasks(ctx, opts, result); err != nil {
			return nil, err
		}

	case types.SweepOrphans:
		report, err := uc.relationship.CleanupOrphans(ctx, CleanupRequest{
			IncludeIssues: true,
			Limit:         opts.Limit,
			Actor:         sweepActor,
		})
		if err != nil {
			return nil, err
		}
		result.Orphans = report
		result.Summary = report.Summary

	default:
		return nil, goerr.Wrap(ErrUnknownSweep, "cannot run sweep", goerr.V(SweepKey, kind))
	}

	return result, nil
}

// sweepOverdueTasks reminds assignees of overdue tasks. A task overdue for
// longer than the escalation threshold is escalated once to its group
// manager and its priority is raised one step.
func (uc *CascadeUseCase) sweepOverdueTasks(ctx context.Context, opts SweepOptions, result *SweepResult) error {
	logger := logging.From(ctx)

	tasks, err := uc.repo.Task().ListOverdue(ctx, opts.Now, opts.Limit)
	if err != nil {
		return goerr.Wrap(err, "failed to list overdue tasks")
	}

	for _, task := range tasks {
		result.Summary.Processed++
		days := task.DaysOverdue(opts.Now)

		result.Notifications = append(result.Notifications, model.Notification{
			Event:     model.EventTaskOverdue,
			Subject:   model.TaskRef(task.ID),
			Recipient: task.AssignedTo,
			Payload:   overduePayload(task, days),
		})

		if days <= uc.rules.Escalation.AfterDays || task.EscalatedAt != nil {
			result.Summary.Skipped++
			continue
		}

		escalated, err := uc.escalateTask(ctx, task.ID, days, opts.Now)
		if err != nil {
			if isNotFound(err) {
				result.Summary.Skipped++
				continue
			}
			logger.Error("failed to escalate task", "task_id", task.ID, "error", err)
			result.Summary.Errored++
			continue
		}
		if escalated == nil {
			result.Summary.Skipped++
			continue
		}
		result.Summary.Updated++

		manager := uc.rules.Assignment.ManagerOf(escalated.AssignmentGroup)
		if manager == "" {
			logger.Warn("no manager configured for escalation",
				"task_id", task.ID,
				"group", escalated.AssignmentGroup)
			continue
		}
		result.Notifications = append(result.Notifications, model.Notification{
			Event:     model.EventTaskEscalation,
			Subject:   model.TaskRef(escalated.ID),
			Recipient: manager,
			Payload:   overduePayload(escalated, days),
		})
	}

	logger.Info("overdue task sweep finished",
		"processed", result.Summary.Processed,
		"escalated", result.Summary.Updated,
		"errored", result.Summary.Errored)

	return nil
}

// escalateTask re-reads the task and escalates it unless another writer
// finished or escalated it first. A nil task means nothing was written.
func (uc *CascadeUseCase) escalateTask(ctx context.Context, taskID string, days int, now time.Time) (*model.Task, error) {
	var escalated *model.Task
	err := retryOnConflict(ctx, func() error {
		escalated = nil
		task, err := uc.repo.Task().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsOverdue(now) || task.EscalatedAt != nil {
			return nil
		}

		task.Priority = task.Priority.Raise()
		task.AddWorkNote(sweepActor,
			fmt.Sprintf("Priority escalated by scheduled job: task is %d days overdue.", days),
			now)
		escalatedAt := now
		task.EscalatedAt = &escalatedAt
		task.UpdatedBy = sweepActor

		updated, err := uc.repo.Task().Update(ctx, task)
		if err != nil {
			return err
		}
		escalated = updated
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to escalate task", goerr.V(TaskIDKey, taskID))
	}
	return escalated, nil
}

func overduePayload(task *model.Task, days int) map[string]any {
	return map[string]any{
		"number":           task.Number,
		"title":            task.Title,
		"due_date":         task.DueDate.Format(time.RFC3339),
		"days_overdue":     days,
		"priority":         int(task.Priority),
		"assignment_group": task.AssignmentGroup.String(),
	}
}
