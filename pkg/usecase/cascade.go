package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

// CascadeUseCase applies the rule pipeline to incoming events and
// propagates their side effects to related entities
type CascadeUseCase struct {
	repo         interfaces.Repository
	rules        *config.Rules
	matrix       *model.RiskMatrix
	stateMachine *model.StateMachine
	relationship *RelationshipUseCase
	compliance   *ComplianceUseCase
	now          func() time.Time
}

func NewCascadeUseCase(
	repo interfaces.Repository,
	rules *config.Rules,
	matrix *model.RiskMatrix,
	stateMachine *model.StateMachine,
	relationship *RelationshipUseCase,
	compliance *ComplianceUseCase,
	now func() time.Time,
) *CascadeUseCase {
	return &CascadeUseCase{
		repo:         repo,
		rules:        rules,
		matrix:       matrix,
		stateMachine: stateMachine,
		relationship: relationship,
		compliance:   compliance,
		now:          now,
	}
}

// RiskChangeResult is returned by OnRiskFieldChange
type RiskChangeResult struct {
	Risk          *model.Risk
	Notifications []model.Notification
	Warnings      []string
}

// OnRiskFieldChange applies a partial update to a risk. The risk is re-read,
// the change validated against the stored state and the result written with
// compare-and-set. Any rejection aborts the whole write. With SkipTriggers
// the change is written as-is without score recompute, auto-assignment or
// notifications.
func (uc *CascadeUseCase) OnRiskFieldChange(ctx context.Context, riskID string, change model.RiskChange, actor string, opts ...interfaces.WriteOption) (*RiskChangeResult, error) {
	if change.IsEmpty() {
		ve := &model.ValidationError{}
		ve.Add("change", "no field to update")
		return nil, ve
	}
	if err := validateRiskChange(change); err != nil {
		return nil, goerr.Wrap(err, "invalid risk change", goerr.V(RiskIDKey, riskID))
	}

	current, err := uc.repo.Risk().Get(ctx, riskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V(RiskIDKey, riskID))
	}

	wopts := interfaces.BuildWriteOptions(opts...)
	next := current.Clone()
	change.Apply(next)
	next.UpdatedBy = actor

	result := &RiskChangeResult{}
	if !wopts.SkipTriggers {
		if err := uc.runRiskPipeline(ctx, current, next, change, result); err != nil {
			return nil, goerr.Wrap(err, "risk change rejected",
				goerr.V(RiskIDKey, riskID),
				goerr.V(model.ActorKey, actor))
		}
	}

	updated, err := uc.repo.Risk().Update(ctx, next, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk",
			goerr.V(RiskIDKey, riskID),
			goerr.V(model.VersionKey, next.Version))
	}
	result.Risk = updated

	logging.From(ctx).Info("risk updated",
		"risk_id", riskID,
		"actor", actor,
		"state", updated.State,
		"score", updated.Score,
		"rating", updated.Rating,
		"skip_triggers", wopts.SkipTriggers)

	return result, nil
}

func validateRiskChange(change model.RiskChange) error {
	ve := &model.ValidationError{}
	if change.Likelihood != nil && !model.InLevelRange(*change.Likelihood) {
		ve.AddCause("likelihood", fmt.Sprintf("must be between %d and %d", model.MinLevel, model.MaxLevel), model.ErrOutOfRange)
	}
	if change.Impact != nil && !model.InLevelRange(*change.Impact) {
		ve.AddCause("impact", fmt.Sprintf("must be between %d and %d", model.MinLevel, model.MaxLevel), model.ErrOutOfRange)
	}
	if change.State != nil && !change.State.IsValid() {
		ve.Add("state", "unknown risk state")
	}
	if change.Category != nil && *change.Category != "" {
		if err := change.Category.Validate(); err != nil {
			ve.AddCause("category", "invalid category ID", err)
		}
	}
	if change.AssignmentGroup != nil && *change.AssignmentGroup != "" {
		if err := change.AssignmentGroup.Validate(); err != nil {
			ve.AddCause("assignment_group", "invalid group ID", err)
		}
	}
	return ve.OrNil()
}

// runRiskPipeline derives score and rating, checks the state transition and
// fills the assignment group. next already carries the applied change.
func (uc *CascadeUseCase) runRiskPipeline(ctx context.Context, current, next *model.Risk, change model.RiskChange, result *RiskChangeResult) error {
	if change.TouchesScore(current) {
		if next.Likelihood == 0 || next.Impact == 0 {
			next.Score, next.Rating = 0, ""
		} else {
			score, err := uc.matrix.Score(next.Likelihood, next.Impact)
			if err != nil {
				return err
			}
			next.Score, next.Rating = score.Score, score.Rating
		}
	}

	if change.ChangesState(current) {
		verdict, err := uc.stateMachine.Validate(types.EntityRisk, current.State.String(), next.State.String())
		if err != nil {
			return err
		}
		if verdict.Unconstrained {
			msg := fmt.Sprintf("risk state %s has no transition rules; moved to %s unchecked", current.State, next.State)
			logging.From(ctx).Warn(msg, "risk_id", current.ID)
			result.Warnings = append(result.Warnings, msg)
		}

		if next.State == types.RiskStateAssess {
			if current.State == types.RiskStateDraft {
				if err := requireSubmissionFields(next); err != nil {
					return err
				}
			}
			now := uc.now()
			next.SubmittedAt = &now
			result.Notifications = append(result.Notifications, model.Notification{
				Event:     model.EventRiskSubmitted,
				Subject:   next.Ref(),
				Recipient: next.Owner,
				Payload: map[string]any{
					"number":           next.Number,
					"name":             next.Name,
					"assignment_group": next.AssignmentGroup.String(),
					"rating":           next.Rating.String(),
				},
			})
		}
	}

	if change.Category != nil && next.AssignmentGroup == "" {
		if group, ok := uc.rules.Assignment.GroupFor(next.Category); ok {
			next.AssignmentGroup = group
		}
	}
	return nil
}

// requireSubmissionFields lists every field that must be set before a
// draft risk is submitted for assessment
func requireSubmissionFields(r *model.Risk) error {
	ve := &model.ValidationError{}
	if r.Statement == "" {
		ve.Add("statement", "required before assessment")
	}
	if r.Category == "" {
		ve.Add("category", "required before assessment")
	}
	if r.Owner == "" {
		ve.Add("owner", "required before assessment")
	}
	if r.Likelihood == 0 {
		ve.Add("likelihood", "required before assessment")
	}
	if r.Impact == 0 {
		ve.Add("impact", "required before assessment")
	}
	return ve.OrNil()
}

// CascadeResult is returned by OnControlStateChange
type CascadeResult struct {
	Control       *model.Control
	Risks         model.Summary
	Issues        model.Summary
	Notifications []model.Notification
	Warnings      []string
}

// Summary returns the combined counts of risk and issue propagation
func (r *CascadeResult) Summary() model.Summary {
	var s model.Summary
	s.Add(r.Risks)
	s.Add(r.Issues)
	return s
}

// OnControlStateChange moves a control to newState and propagates the change
// to related risks. Moving into an out-of-service state also closes the
// control's open issues. Failures on individual related entities are counted
// and do not stop the cascade.
func (uc *CascadeUseCase) OnControlStateChange(ctx context.Context, controlID string, newState types.ControlState, actor string) (*CascadeResult, error) {
	if !newState.IsValid() {
		ve := &model.ValidationError{}
		ve.Add("state", "unknown control state")
		return nil, ve
	}

	control, err := uc.repo.Control().Get(ctx, controlID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get control", goerr.V(ControlIDKey, controlID))
	}
	oldState := control.State

	result := &CascadeResult{}
	verdict, err := uc.stateMachine.Validate(types.EntityControl, oldState.String(), newState.String())
	if err != nil {
		return nil, goerr.Wrap(err, "control state change rejected",
			goerr.V(ControlIDKey, controlID),
			goerr.V(model.ActorKey, actor))
	}
	if verdict.Unconstrained {
		msg := fmt.Sprintf("control state %s has no transition rules; moved to %s unchecked", oldState, newState)
		logging.From(ctx).Warn(msg, "control_id", controlID)
		result.Warnings = append(result.Warnings, msg)
	}

	if oldState == newState {
		result.Control = control
		return result, nil
	}

	control.State = newState
	control.UpdatedBy = actor
	updated, err := uc.repo.Control().Update(ctx, control)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update control",
			goerr.V(ControlIDKey, controlID),
			goerr.V(model.VersionKey, control.Version))
	}
	result.Control = updated

	if err := uc.propagateToRisks(ctx, updated, oldState, actor, result); err != nil {
		return nil, err
	}

	if newState.IsInactive() {
		notes := fmt.Sprintf("Auto-closed: Parent control %s moved to %s state.", updated.Number, newState)
		summary, err := uc.closeOpenIssues(ctx, updated.Ref(), notes, actor)
		if err != nil {
			return nil, err
		}
		result.Issues = summary
	}

	logging.From(ctx).Info("control state changed",
		"control_id", controlID,
		"from", oldState,
		"to", newState,
		"risks_updated", result.Risks.Updated,
		"issues_closed", result.Issues.Updated)

	return result, nil
}

func (uc *CascadeUseCase) propagateToRisks(ctx context.Context, control *model.Control, oldState types.ControlState, actor string, result *CascadeResult) error {
	logger := logging.From(ctx)

	risks, err := uc.relationship.RelatedIDs(ctx, types.RelationRiskControl, control.Ref())
	if err != nil {
		return goerr.Wrap(err, "failed to list related risks", goerr.V(ControlIDKey, control.ID))
	}

	note := fmt.Sprintf("Related control %s state changed from %s to %s", control.Number, oldState, control.State)
	for _, ref := range risks {
		result.Risks.Processed++

		err := retryOnConflict(ctx, func() error {
			risk, err := uc.repo.Risk().Get(ctx, ref.ID)
			if err != nil {
				return err
			}
			now := uc.now()
			risk.AddWorkNote(actor, note, now)
			risk.LastControlReview = &now
			risk.UpdatedBy = actor
			_, err = uc.repo.Risk().Update(ctx, risk)
			return err
		})

		switch {
		case err == nil:
			result.Risks.Updated++
		case isNotFound(err):
			logger.Warn("related risk no longer exists", "risk_id", ref.ID, "control_id", control.ID)
			result.Risks.Skipped++
		default:
			logger.Error("failed to update related risk", "risk_id", ref.ID, "control_id", control.ID, "error", err)
			result.Risks.Errored++
		}
	}
	return nil
}

// closeOpenIssues closes every issue of source that is not closed yet
func (uc *CascadeUseCase) closeOpenIssues(ctx context.Context, source model.Ref, notes, actor string) (model.Summary, error) {
	var summary model.Summary
	issues, err := uc.repo.Issue().ListOpenBySource(ctx, source)
	if err != nil {
		return summary, goerr.Wrap(err, "failed to list open issues", goerr.V(SourceKey, source.String()))
	}

	for _, issue := range issues {
		summary.Processed++
		closed, err := uc.relationship.closeIssue(ctx, issue.ID, notes, actor)
		switch {
		case err != nil && isNotFound(err):
			summary.Skipped++
		case err != nil:
			logging.From(ctx).Error("failed to close issue", "issue_id", issue.ID, "error", err)
			summary.Errored++
		case closed:
			summary.Updated++
		default:
			summary.Skipped++
		}
	}
	return summary, nil
}

// BulkCloseIssues closes every open issue raised against source. The caller
// is responsible for checking the actor may do so.
func (uc *CascadeUseCase) BulkCloseIssues(ctx context.Context, source model.Ref, actor string) (*model.Summary, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	label := source.String()
	if source.Kind == types.EntityControl {
		control, err := uc.repo.Control().Get(ctx, source.ID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get control", goerr.V(ControlIDKey, source.ID))
		}
		label = control.Number
	}

	notes := fmt.Sprintf("Bulk closed: Parent control %s was closed on %s", label, uc.now().Format(time.RFC3339))
	summary, err := uc.closeOpenIssues(ctx, source, notes, actor)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("issues bulk closed",
		"source", source.String(),
		"actor", actor,
		"closed", summary.Updated,
		"errored", summary.Errored)

	return &summary, nil
}
