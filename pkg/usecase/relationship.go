package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

const relationPageSize = 200

// OrphanReason tells which side of a relation row no longer resolves
type OrphanReason string

const (
	OrphanMissingLeft  OrphanReason = "missing_left"
	OrphanMissingRight OrphanReason = "missing_right"
)

// Orphan is a relation row whose left or right entity is gone
type Orphan struct {
	Relation *model.Relation
	Reason   OrphanReason
}

// ReferenceField describes a reference stored on an entity. An empty
// Target means the reference is polymorphic and carries its own kind.
type ReferenceField struct {
	Table  types.EntityKind
	Field  string
	Target types.EntityKind
}

// Known reference fields checked by the dangling reference report
var (
	RefIssueSource    = ReferenceField{Table: types.EntityIssue, Field: "source"}
	RefAssessmentRisk = ReferenceField{Table: types.EntityAssessment, Field: "risk", Target: types.EntityRisk}
)

// ReferenceFields returns the registry of reference fields
func ReferenceFields() []ReferenceField {
	return []ReferenceField{RefIssueSource, RefAssessmentRisk}
}

func (f ReferenceField) String() string {
	return f.Table.String() + "." + f.Field
}

// DanglingReference is a row whose reference points at a missing entity
type DanglingReference struct {
	Field   ReferenceField
	Row     model.Ref
	Missing model.Ref
}

// RelationshipUseCase reads and cleans many-to-many relation tables
type RelationshipUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewRelationshipUseCase(repo interfaces.Repository, now func() time.Time) *RelationshipUseCase {
	return &RelationshipUseCase{repo: repo, now: now}
}

// Link creates a relation row after checking both entities exist
func (uc *RelationshipUseCase) Link(ctx context.Context, kind types.RelationKind, left, right model.Ref) (*model.Relation, error) {
	rel, err := model.NewRelation(kind, left, right)
	if err != nil {
		return nil, err
	}

	for _, ref := range []model.Ref{left, right} {
		ok, err := uc.repo.Exists(ctx, ref)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to check relation side", goerr.V(SourceKey, ref.String()))
		}
		if !ok {
			return nil, goerr.Wrap(model.ErrNotFound, "relation side does not exist", goerr.V(SourceKey, ref.String()))
		}
	}

	created, err := uc.repo.Relation().Create(ctx, rel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create relation", goerr.V(RelationKey, kind))
	}
	return created, nil
}

// RelatedIDs returns the entities on the opposite side of anchor. The
// result is a snapshot; calling again re-reads the table.
func (uc *RelationshipUseCase) RelatedIDs(ctx context.Context, kind types.RelationKind, anchor model.Ref) ([]model.Ref, error) {
	rows, err := uc.repo.Relation().ListByRef(ctx, kind, anchor)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list relations",
			goerr.V(RelationKey, kind),
			goerr.V(SourceKey, anchor.String()))
	}

	refs := make([]model.Ref, 0, len(rows))
	for _, rel := range rows {
		if other, ok := rel.Other(anchor); ok {
			refs = append(refs, other)
		}
	}
	return refs, nil
}

// Exists reports whether ref resolves to a stored entity
func (uc *RelationshipUseCase) Exists(ctx context.Context, ref model.Ref) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	return uc.repo.Exists(ctx, ref)
}

// FindOrphans scans every row of kind. The left side is checked first, so a
// row missing both sides reports missing_left. Nothing is modified.
func (uc *RelationshipUseCase) FindOrphans(ctx context.Context, kind types.RelationKind) ([]Orphan, error) {
	if !kind.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "unknown relation kind", goerr.V(RelationKey, kind))
	}

	var orphans []Orphan
	cursor := ""
	for {
		rows, err := uc.repo.Relation().ListByKind(ctx, kind,
			interfaces.WithStartAfter(cursor),
			interfaces.WithLimit(relationPageSize))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list relations", goerr.V(RelationKey, kind))
		}

		for _, rel := range rows {
			reason, err := uc.orphanReason(ctx, rel)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				orphans = append(orphans, Orphan{Relation: rel, Reason: reason})
			}
		}

		if len(rows) < relationPageSize {
			break
		}
		cursor = rows[len(rows)-1].ID
	}
	return orphans, nil
}

func (uc *RelationshipUseCase) orphanReason(ctx context.Context, rel *model.Relation) (OrphanReason, error) {
	ok, err := uc.repo.Exists(ctx, rel.Left)
	if err != nil {
		return "", goerr.Wrap(err, "failed to check left side", goerr.V(RelationKey, rel.ID))
	}
	if !ok {
		return OrphanMissingLeft, nil
	}

	ok, err = uc.repo.Exists(ctx, rel.Right)
	if err != nil {
		return "", goerr.Wrap(err, "failed to check right side", goerr.V(RelationKey, rel.ID))
	}
	if !ok {
		return OrphanMissingRight, nil
	}
	return "", nil
}

// FindDanglingReferences checks one registered reference field. For the
// polymorphic issue source, a non-empty target restricts the check to
// references of that kind.
func (uc *RelationshipUseCase) FindDanglingReferences(ctx context.Context, table types.EntityKind, field string, target types.EntityKind) ([]DanglingReference, error) {
	switch {
	case table == RefIssueSource.Table && field == RefIssueSource.Field:
		return uc.danglingIssueSources(ctx, target)
	case table == RefAssessmentRisk.Table && field == RefAssessmentRisk.Field:
		if target != "" && target != RefAssessmentRisk.Target {
			return nil, goerr.Wrap(ErrUnknownReference, "assessment.risk only references risks", goerr.V(TableKey, target))
		}
		return uc.danglingAssessmentRisks(ctx)
	default:
		return nil, goerr.Wrap(ErrUnknownReference, "reference field is not registered",
			goerr.V(TableKey, table),
			goerr.V("field", field))
	}
}

func (uc *RelationshipUseCase) danglingIssueSources(ctx context.Context, target types.EntityKind) ([]DanglingReference, error) {
	var dangling []DanglingReference
	err := eachPage(ctx, uc.repo.Issue().List, func(issue *model.Issue) error {
		if issue.Source.IsZero() || (target != "" && issue.Source.Kind != target) {
			return nil
		}
		ok, err := uc.repo.Exists(ctx, issue.Source)
		if err != nil {
			return goerr.Wrap(err, "failed to check issue source", goerr.V(IssueIDKey, issue.ID))
		}
		if !ok {
			dangling = append(dangling, DanglingReference{
				Field:   RefIssueSource,
				Row:     model.IssueRef(issue.ID),
				Missing: issue.Source,
			})
		}
		return nil
	})
	return dangling, err
}

func (uc *RelationshipUseCase) danglingAssessmentRisks(ctx context.Context) ([]DanglingReference, error) {
	var dangling []DanglingReference
	err := eachPage(ctx, uc.repo.Assessment().List, func(a *model.Assessment) error {
		if a.RiskID == "" {
			return nil
		}
		ref := model.RiskRef(a.RiskID)
		ok, err := uc.repo.Exists(ctx, ref)
		if err != nil {
			return goerr.Wrap(err, "failed to check assessment risk", goerr.V("assessment_id", a.ID))
		}
		if !ok {
			dangling = append(dangling, DanglingReference{
				Field:   RefAssessmentRisk,
				Row:     model.AssessmentRef(a.ID),
				Missing: ref,
			})
		}
		return nil
	})
	return dangling, err
}

// eachPage walks a List query page by page
func eachPage[T any, P interface {
	*T
	GetMeta() *model.Meta
}](ctx context.Context, list func(context.Context, ...interfaces.ListOption) ([]*T, error), fn func(*T) error) error {
	cursor := ""
	for {
		rows, err := list(ctx, interfaces.WithStartAfter(cursor), interfaces.WithLimit(relationPageSize))
		if err != nil {
			return goerr.Wrap(err, "failed to list entities")
		}
		for _, v := range rows {
			if err := fn(v); err != nil {
				return err
			}
		}
		if len(rows) < relationPageSize {
			return nil
		}
		cursor = P(rows[len(rows)-1]).GetMeta().ID
	}
}

// CleanupRequest selects the orphan checks to run. Nothing is modified
// unless Apply is set.
type CleanupRequest struct {
	Kinds         []types.RelationKind // empty means every relation kind
	IncludeIssues bool
	Apply         bool
	Limit         int // upper bound of mutations, 0 for no bound
	Actor         string
}

// CleanupCheck is the outcome of one orphan check
type CleanupCheck struct {
	Name  string
	Found int
	Fixed int
}

// CleanupReport is returned by CleanupOrphans
type CleanupReport struct {
	DryRun  bool
	Checks  []CleanupCheck
	Orphans []Orphan
	Issues  []DanglingReference
	Summary model.Summary
}

const orphanIssueCloseNotes = "Auto-closed: Source record no longer exists."

// CleanupOrphans reports orphaned relation rows, issues whose source is
// gone and assessments of deleted risks. With Apply, orphaned relation rows
// are deleted and such issues are closed. Assessments are only reported.
func (uc *RelationshipUseCase) CleanupOrphans(ctx context.Context, req CleanupRequest) (*CleanupReport, error) {
	logger := logging.From(ctx)
	report := &CleanupReport{DryRun: !req.Apply}

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = types.AllRelationKinds()
	}

	remaining := req.Limit
	spend := func() bool {
		if req.Limit <= 0 {
			return true
		}
		if remaining <= 0 {
			return false
		}
		remaining--
		return true
	}

	for _, kind := range kinds {
		orphans, err := uc.FindOrphans(ctx, kind)
		if err != nil {
			return nil, err
		}
		check := CleanupCheck{Name: "relation." + kind.String(), Found: len(orphans)}
		report.Orphans = append(report.Orphans, orphans...)

		for _, o := range orphans {
			report.Summary.Processed++
			if !req.Apply {
				logger.Info("dry run: would delete orphaned relation",
					"relation_id", o.Relation.ID,
					"kind", kind,
					"reason", o.Reason)
				report.Summary.Updated++
				continue
			}
			if !spend() {
				report.Summary.Skipped++
				continue
			}
			if err := uc.repo.Relation().Delete(ctx, o.Relation.ID); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					report.Summary.Skipped++
					continue
				}
				logger.Error("failed to delete orphaned relation", "relation_id", o.Relation.ID, "error", err)
				report.Summary.Errored++
				continue
			}
			check.Fixed++
			report.Summary.Updated++
		}
		report.Checks = append(report.Checks, check)
	}

	if req.IncludeIssues {
		dangling, err := uc.FindDanglingReferences(ctx, RefIssueSource.Table, RefIssueSource.Field, "")
		if err != nil {
			return nil, err
		}
		check := CleanupCheck{Name: RefIssueSource.String(), Found: len(dangling)}
		report.Issues = dangling

		for _, d := range dangling {
			report.Summary.Processed++
			if !req.Apply {
				logger.Info("dry run: would close issue with missing source",
					"issue_id", d.Row.ID,
					"source", d.Missing.String())
				report.Summary.Updated++
				continue
			}
			if !spend() {
				report.Summary.Skipped++
				continue
			}

			closed, err := uc.closeIssue(ctx, d.Row.ID, orphanIssueCloseNotes, req.Actor)
			switch {
			case err != nil:
				logger.Error("failed to close orphaned issue", "issue_id", d.Row.ID, "error", err)
				report.Summary.Errored++
			case closed:
				check.Fixed++
				report.Summary.Updated++
			default:
				report.Summary.Skipped++
			}
		}
		report.Checks = append(report.Checks, check)
	}

	assessments, err := uc.FindDanglingReferences(ctx, RefAssessmentRisk.Table, RefAssessmentRisk.Field, RefAssessmentRisk.Target)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, CleanupCheck{Name: RefAssessmentRisk.String(), Found: len(assessments)})
	for _, d := range assessments {
		logger.Info("assessment references missing risk",
			"assessment_id", d.Row.ID,
			"risk_id", d.Missing.ID)
	}

	logger.Info("orphan cleanup finished",
		"dry_run", report.DryRun,
		"processed", report.Summary.Processed,
		"updated", report.Summary.Updated,
		"skipped", report.Summary.Skipped,
		"errored", report.Summary.Errored)

	return report, nil
}

// closeIssue re-reads the issue and closes it unless it is already closed.
// It reports whether a write happened.
func (uc *RelationshipUseCase) closeIssue(ctx context.Context, issueID, notes, actor string) (bool, error) {
	closed := false
	err := retryOnConflict(ctx, func() error {
		issue, err := uc.repo.Issue().Get(ctx, issueID)
		if err != nil {
			return err
		}
		if issue.IsClosed() {
			closed = false
			return nil
		}

		issue.Close(notes, actor, uc.now())
		issue.UpdatedBy = actor
		if _, err := uc.repo.Issue().Update(ctx, issue); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to close issue", goerr.V(IssueIDKey, issueID))
	}
	return closed, nil
}

// PolicyComplianceResult summarizes the controls linked to a policy
type PolicyComplianceResult struct {
	Compliant      bool `json:"compliant"`
	Total          int  `json:"total"`
	CompliantCount int  `json:"compliant_count"`
	Missing        int  `json:"missing"`
}

// PolicyCompliance checks the cached compliance status of every control
// linked to the policy. Links to deleted controls count toward Total but
// neither as compliant nor as a violation.
func (uc *RelationshipUseCase) PolicyCompliance(ctx context.Context, policyID string) (*PolicyComplianceResult, error) {
	if _, err := uc.repo.Policy().Get(ctx, policyID); err != nil {
		return nil, goerr.Wrap(err, "failed to get policy", goerr.V(PolicyIDKey, policyID))
	}

	controls, err := uc.RelatedIDs(ctx, types.RelationPolicyControl, model.PolicyRef(policyID))
	if err != nil {
		return nil, err
	}

	result := &PolicyComplianceResult{Compliant: true}
	for _, ref := range controls {
		result.Total++
		control, err := uc.repo.Control().Get(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				result.Missing++
				continue
			}
			return nil, goerr.Wrap(err, "failed to get control", goerr.V(ControlIDKey, ref.ID))
		}

		if control.ComplianceStatus == types.ComplianceCompliant {
			result.CompliantCount++
		} else {
			result.Compliant = false
		}
	}
	return result, nil
}

// PolicyOf resolves the parent policy of a policy statement through the
// policy_statement relation. When several policies link the statement the
// last linked one wins. Links to deleted policies are ignored.
func (uc *RelationshipUseCase) PolicyOf(ctx context.Context, statementID string) (*model.Policy, error) {
	if _, err := uc.repo.PolicyStatement().Get(ctx, statementID); err != nil {
		return nil, goerr.Wrap(err, "failed to get policy statement", goerr.V(StatementKey, statementID))
	}

	anchor := model.PolicyStatementRef(statementID)
	rows, err := uc.repo.Relation().ListByRef(ctx, types.RelationPolicyStatement, anchor)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list relations",
			goerr.V(RelationKey, types.RelationPolicyStatement),
			goerr.V(SourceKey, anchor.String()))
	}

	var parent *model.Policy
	var linkedAt time.Time
	for _, rel := range rows {
		ref, ok := rel.Other(anchor)
		if !ok {
			continue
		}
		policy, err := uc.repo.Policy().Get(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, goerr.Wrap(err, "failed to get policy", goerr.V(PolicyIDKey, ref.ID))
		}
		if parent == nil || !rel.CreatedAt.Before(linkedAt) {
			parent, linkedAt = policy, rel.CreatedAt
		}
	}
	if parent == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "policy statement has no parent policy", goerr.V(StatementKey, statementID))
	}
	return parent, nil
}
