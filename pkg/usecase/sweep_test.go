package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/repository/memory"
	"github.com/secmon-lab/grcore/pkg/usecase"
)

func createTask(t *testing.T, repo *memory.Memory, number string, overdue time.Duration, fn func(*model.Task)) *model.Task {
	t.Helper()
	task := model.NewTask(number, "Review "+number, testNow.Add(-overdue), types.PriorityModerate)
	task.AssignmentGroup = "it_risk_management"
	task.AssignedTo = "frank"
	if fn != nil {
		fn(task)
	}
	created, err := repo.Task().Create(context.Background(), task)
	gt.NoError(t, err).Required()
	return created
}

func countEvents(ns []model.Notification, event string) int {
	n := 0
	for _, v := range ns {
		if v.Event == event {
			n++
		}
	}
	return n
}

func TestOnScheduledSweep_OverdueTasks(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour
	uc, repo := setup(t, usecase.WithRules(rulesWithManager("it_risk_management", "grace")))

	late := createTask(t, repo, "TSK001", 10*day, nil)
	createTask(t, repo, "TSK002", 2*day, nil)
	createTask(t, repo, "TSK003", 30*day, func(t *model.Task) { t.State = types.TaskStateClosed })
	escalated := createTask(t, repo, "TSK004", 20*day, func(t *model.Task) {
		at := testNow.Add(-5 * day)
		t.EscalatedAt = &at
		t.Priority = types.PriorityHigh
	})
	createTask(t, repo, "TSK005", -3*day, nil) // not due yet

	result, err := uc.Cascade.OnScheduledSweep(ctx, types.SweepOverdueTasks, usecase.SweepOptions{})
	gt.NoError(t, err).Required()

	gt.V(t, result.Summary).Equal(model.Summary{Processed: 3, Updated: 1, Skipped: 2})
	gt.V(t, countEvents(result.Notifications, model.EventTaskOverdue)).Equal(3)
	gt.V(t, countEvents(result.Notifications, model.EventTaskEscalation)).Equal(1)

	for _, n := range result.Notifications {
		switch n.Event {
		case model.EventTaskOverdue:
			gt.V(t, n.Recipient).Equal("frank")
		case model.EventTaskEscalation:
			gt.V(t, n.Recipient).Equal("grace")
			gt.V(t, n.Subject).Equal(model.TaskRef(late.ID))
			gt.V(t, n.Payload["days_overdue"]).Equal(any(10))
		}
	}

	stored, err := repo.Task().Get(ctx, late.ID)
	gt.NoError(t, err).Required()
	gt.V(t, stored.Priority).Equal(types.PriorityHigh)
	gt.V(t, stored.EscalatedAt).NotNil()
	gt.A(t, stored.WorkNotes).Length(1).Required()
	gt.V(t, stored.WorkNotes[0].Body).Equal("Priority escalated by scheduled job: task is 10 days overdue.")

	stored, err = repo.Task().Get(ctx, escalated.ID)
	gt.NoError(t, err).Required()
	gt.V(t, stored.Priority).Equal(types.PriorityHigh)
	gt.V(t, stored.Version).Equal(escalated.Version)

	t.Run("second run only reminds", func(t *testing.T) {
		result, err := uc.Cascade.OnScheduledSweep(ctx, types.SweepOverdueTasks, usecase.SweepOptions{})
		gt.NoError(t, err).Required()
		gt.V(t, result.Summary.Updated).Equal(0)
		gt.V(t, countEvents(result.Notifications, model.EventTaskEscalation)).Equal(0)

		stored, err := repo.Task().Get(ctx, late.ID)
		gt.NoError(t, err).Required()
		gt.V(t, stored.Priority).Equal(types.PriorityHigh)
	})

	t.Run("limit", func(t *testing.T) {
		result, err := uc.Cascade.OnScheduledSweep(ctx, types.SweepOverdueTasks, usecase.SweepOptions{Limit: 1})
		gt.NoError(t, err).Required()
		gt.V(t, result.Summary.Processed).Equal(1)
	})
}

func TestOnScheduledSweep_PriorityFloor(t *testing.T) {
	ctx := context.Background()
	uc, repo := setup(t)
	task := createTask(t, repo, "TSK010", 9*24*time.Hour, func(t *model.Task) { t.Priority = types.PriorityCritical })

	result, err := uc.Cascade.OnScheduledSweep(ctx, types.SweepOverdueTasks, usecase.SweepOptions{})
	gt.NoError(t, err).Required()
	gt.V(t, result.Summary.Updated).Equal(1)
	// no manager configured for the group, so only the reminder is sent
	gt.A(t, result.Notifications).Length(1)

	stored, err := repo.Task().Get(ctx, task.ID)
	gt.NoError(t, err).Required()
	gt.V(t, stored.Priority).Equal(types.PriorityCritical)
}

func TestOnScheduledSweep_Other(t *testing.T) {
	ctx := context.Background()

	t.Run("compliance", func(t *testing.T) {
		uc, repo := setup(t)
		control := createControl(t, repo, "CTL0600", types.ControlStateMonitor)
		recordResults(t, repo, control.ID, fail)

		result, err := uc.Cascade.OnScheduledSweep(ctx, types.SweepCompliance, usecase.SweepOptions{})
		gt.NoError(t, err).Required()
		gt.V(t, result.Compliance).NotNil()
		gt.V(t, result.Compliance.IssuesRaised).Equal(1)
		gt.V(t, result.Summary.Updated).Equal(1)
	})

	t.Run("orphans is report only", func(t *testing.T) {
		uc, repo := setup(t)
		seedOrphans(t, repo)

		result, err := uc.Cascade.OnScheduledSweep(ctx, types.SweepOrphans, usecase.SweepOptions{})
		gt.NoError(t, err).Required()
		gt.B(t, result.Orphans.DryRun).True()
		gt.A(t, result.Orphans.Orphans).Length(3)

		rows, err := repo.Relation().List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, rows).Length(10)
	})

	t.Run("unknown kind", func(t *testing.T) {
		uc, _ := setup(t)
		_, err := uc.Cascade.OnScheduledSweep(ctx, "weekly", usecase.SweepOptions{})
		gt.Error(t, err).Is(usecase.ErrUnknownSweep)
	})
}
