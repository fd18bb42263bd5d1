package model

import (
	"slices"

	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// ComplianceEvaluation is the outcome of evaluating a control's recent results
type ComplianceEvaluation struct {
	Status   types.ComplianceStatus
	Total    int
	Passed   int
	PassRate float64
}

// ComplianceEvaluator derives a compliance status from the most recent
// active test results of a control
type ComplianceEvaluator struct {
	cfg config.Compliance
}

// NewComplianceEvaluator creates an evaluator with validated thresholds
func NewComplianceEvaluator(cfg config.Compliance) (*ComplianceEvaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ComplianceEvaluator{cfg: cfg}, nil
}

// DefaultComplianceEvaluator uses a window of 5 and 80/50 percent thresholds
func DefaultComplianceEvaluator() *ComplianceEvaluator {
	return &ComplianceEvaluator{cfg: config.DefaultRules().Compliance}
}

// Window returns how many recent results are considered
func (e *ComplianceEvaluator) Window() int {
	return e.cfg.Window
}

// Evaluate considers the newest min(window, n) active results. The input
// is not modified and may be in any order.
func (e *ComplianceEvaluator) Evaluate(results []*TestResult) ComplianceEvaluation {
	active := make([]*TestResult, 0, len(results))
	for _, r := range results {
		if r != nil && r.Active {
			active = append(active, r)
		}
	}
	slices.SortStableFunc(active, func(a, b *TestResult) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(active) > e.cfg.Window {
		active = active[:e.cfg.Window]
	}

	if len(active) == 0 {
		return ComplianceEvaluation{Status: types.ComplianceNotAssessed}
	}

	passed := 0
	for _, r := range active {
		if r.Result == types.TestOutcomePass {
			passed++
		}
	}
	rate := float64(passed) / float64(len(active)) * 100

	status := types.ComplianceNonCompliant
	switch {
	case rate >= e.cfg.CompliantMin:
		status = types.ComplianceCompliant
	case rate >= e.cfg.PartialMin:
		status = types.CompliancePartiallyCompliant
	}

	return ComplianceEvaluation{
		Status:   status,
		Total:    len(active),
		Passed:   passed,
		PassRate: rate,
	}
}
