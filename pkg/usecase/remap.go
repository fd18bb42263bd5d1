package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

const remapActor = "system:remap"

// RemapRequest rewrites one field through a static value mapping. Nothing is
// written unless Apply is set.
type RemapRequest struct {
	Target        types.RemapTarget
	Mapping       map[string]string
	BatchLimit    int
	Apply         bool
	PreserveAudit bool
	Actor         string
	StartAfter    string // resume after this entity ID
}

// RemapResult is returned by OnBulkRemap. NextCursor is set when the batch
// limit was reached and more rows may remain.
type RemapResult struct {
	DryRun     bool
	Summary    model.Summary
	NextCursor string
}

// RemapRequestFor builds a request from a configured remap table
func RemapRequestFor(table config.RemapTable) RemapRequest {
	return RemapRequest{
		Target:        table.Target,
		Mapping:       table.Mapping,
		BatchLimit:    table.Limit(),
		PreserveAudit: table.PreserveAudit,
	}
}

// RunRemapTable looks up a configured remap table by name and runs it
func (uc *CascadeUseCase) RunRemapTable(ctx context.Context, name string, apply bool, actor, startAfter string) (*RemapResult, error) {
	table, ok := uc.rules.Remap(name)
	if !ok {
		return nil, goerr.Wrap(ErrUnknownRemapTable, "remap table is not configured", goerr.V(TableKey, name))
	}

	req := RemapRequestFor(table)
	req.Apply = apply
	req.Actor = actor
	req.StartAfter = startAfter

	ctx = logging.With(ctx, logging.From(ctx).With("remap_table", name))
	return uc.OnBulkRemap(ctx, req)
}

// OnBulkRemap scans at most BatchLimit rows of the target entity. Rows whose
// value has no mapping are skipped. Mapped rows are rewritten as raw data
// fixes: the risk rule pipeline does not run, and with PreserveAudit the last
// modified actor and time are kept.
func (uc *CascadeUseCase) OnBulkRemap(ctx context.Context, req RemapRequest) (*RemapResult, error) {
	table := config.RemapTable{
		Name:       "request",
		Target:     req.Target,
		Mapping:    req.Mapping,
		BatchLimit: req.BatchLimit,
	}
	if err := table.Validate(); err != nil {
		ve := &model.ValidationError{}
		ve.AddCause("mapping", err.Error(), err)
		return nil, ve
	}
	limit := table.Limit()
	actor := req.Actor
	if actor == "" {
		actor = remapActor
	}

	var (
		rows []remapRow
		err  error
	)
	opts := []interfaces.ListOption{interfaces.WithStartAfter(req.StartAfter), interfaces.WithLimit(limit)}
	switch req.Target.Entity() {
	case types.EntityRisk:
		rows, err = uc.riskRows(ctx, req.Target, opts)
	case types.EntityTask:
		rows, err = uc.taskRows(ctx, opts)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list remap candidates", goerr.V("target", req.Target))
	}

	logger := logging.From(ctx)
	result := &RemapResult{DryRun: !req.Apply}
	wopts := []interfaces.WriteOption{interfaces.WithSkipTriggers()}
	if req.PreserveAudit {
		wopts = append(wopts, interfaces.WithPreserveAudit())
	}

	for _, row := range rows {
		result.Summary.Processed++
		to, ok := req.Mapping[row.value]
		if !ok || to == row.value {
			result.Summary.Skipped++
			continue
		}

		if !req.Apply {
			logger.Info("dry run: would remap",
				"target", req.Target,
				"id", row.id,
				"from", row.value,
				"to", to)
			result.Summary.Updated++
			continue
		}

		changed, err := uc.remapOne(ctx, req, row.id, actor, wopts)
		switch {
		case err != nil && isNotFound(err):
			result.Summary.Skipped++
		case err != nil:
			logger.Error("failed to remap", "target", req.Target, "id", row.id, "error", err)
			result.Summary.Errored++
		case changed:
			result.Summary.Updated++
		default:
			result.Summary.Skipped++
		}
	}

	if len(rows) == limit {
		result.NextCursor = rows[len(rows)-1].id
	}

	logger.Info("bulk remap finished",
		"target", req.Target,
		"dry_run", result.DryRun,
		"processed", result.Summary.Processed,
		"updated", result.Summary.Updated,
		"skipped", result.Summary.Skipped,
		"errored", result.Summary.Errored,
		"next_cursor", result.NextCursor)

	return result, nil
}

type remapRow struct {
	id    string
	value string
}

func (uc *CascadeUseCase) riskRows(ctx context.Context, target types.RemapTarget, opts []interfaces.ListOption) ([]remapRow, error) {
	risks, err := uc.repo.Risk().List(ctx, opts...)
	if err != nil {
		return nil, err
	}
	rows := make([]remapRow, 0, len(risks))
	for _, r := range risks {
		rows = append(rows, remapRow{id: r.ID, value: riskField(r, target)})
	}
	return rows, nil
}

func (uc *CascadeUseCase) taskRows(ctx context.Context, opts []interfaces.ListOption) ([]remapRow, error) {
	tasks, err := uc.repo.Task().List(ctx, opts...)
	if err != nil {
		return nil, err
	}
	rows := make([]remapRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, remapRow{id: t.ID, value: t.AssignmentGroup.String()})
	}
	return rows, nil
}

func riskField(r *model.Risk, target types.RemapTarget) string {
	if target == types.RemapRiskCategory {
		return r.Category.String()
	}
	return r.AssignmentGroup.String()
}

func remapNote(target types.RemapTarget, from, to string) string {
	label := "Assignment group"
	if target == types.RemapRiskCategory {
		label = "Category"
	}
	return fmt.Sprintf("%s remapped from %q to %q by bulk remap.", label, from, to)
}

// remapOne re-reads the row and rewrites it if its value is still mapped
func (uc *CascadeUseCase) remapOne(ctx context.Context, req RemapRequest, id, actor string, wopts []interfaces.WriteOption) (bool, error) {
	changed := false
	err := retryOnConflict(ctx, func() error {
		changed = false
		now := uc.now()

		switch req.Target.Entity() {
		case types.EntityRisk:
			risk, err := uc.repo.Risk().Get(ctx, id)
			if err != nil {
				return err
			}
			from := riskField(risk, req.Target)
			to, ok := req.Mapping[from]
			if !ok || to == from {
				return nil
			}
			if req.Target == types.RemapRiskCategory {
				risk.Category = types.CategoryID(to)
			} else {
				risk.AssignmentGroup = types.GroupID(to)
			}
			risk.AddWorkNote(actor, remapNote(req.Target, from, to), now)
			risk.UpdatedBy = actor
			if _, err := uc.repo.Risk().Update(ctx, risk, wopts...); err != nil {
				return err
			}

		case types.EntityTask:
			task, err := uc.repo.Task().Get(ctx, id)
			if err != nil {
				return err
			}
			from := task.AssignmentGroup.String()
			to, ok := req.Mapping[from]
			if !ok || to == from {
				return nil
			}
			task.AssignmentGroup = types.GroupID(to)
			task.AddWorkNote(actor, remapNote(req.Target, from, to), now)
			task.UpdatedBy = actor
			if _, err := uc.repo.Task().Update(ctx, task, wopts...); err != nil {
				return err
			}
		}

		changed = true
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to remap entity", goerr.V("id", id))
	}
	return changed, nil
}
