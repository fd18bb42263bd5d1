package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// results builds test results where outcomes[0] is the newest
func results(outcomes ...types.TestOutcome) []*model.TestResult {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*model.TestResult, 0, len(outcomes))
	for i, o := range outcomes {
		out = append(out, model.NewTestResult("ctrl", o, base.Add(-time.Duration(i)*time.Hour)))
	}
	return out
}

const (
	pass = types.TestOutcomePass
	fail = types.TestOutcomeFail
)

func TestComplianceEvaluator_Evaluate(t *testing.T) {
	e := model.DefaultComplianceEvaluator()

	tests := []struct {
		name    string
		results []*model.TestResult
		want    types.ComplianceStatus
		total   int
	}{
		{"no results", nil, types.ComplianceNotAssessed, 0},
		{"all pass", results(pass, pass, pass, pass, pass), types.ComplianceCompliant, 5},
		{"4 of 5 is exactly 80", results(pass, pass, fail, pass, pass), types.ComplianceCompliant, 5},
		{"3 of 5", results(pass, fail, pass, fail, pass), types.CompliancePartiallyCompliant, 5},
		{"1 of 2 is exactly 50", results(pass, fail), types.CompliancePartiallyCompliant, 2},
		{"2 of 5", results(fail, pass, fail, pass, fail), types.ComplianceNonCompliant, 5},
		{"single fail", results(fail), types.ComplianceNonCompliant, 1},
		{"older results outside window", results(pass, pass, pass, pass, pass, fail, fail, fail), types.ComplianceCompliant, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(tt.results)
			gt.V(t, got.Status).Equal(tt.want)
			gt.V(t, got.Total).Equal(tt.total)
		})
	}
}

func TestComplianceEvaluator_IgnoresInactiveAndOrder(t *testing.T) {
	e := model.DefaultComplianceEvaluator()

	rs := results(fail, fail, pass, pass, pass, pass, pass)
	rs[0].Active = false
	rs[1].Active = false
	// reverse so the newest results come last
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}

	got := e.Evaluate(rs)
	gt.V(t, got.Status).Equal(types.ComplianceCompliant)
	gt.V(t, got.Passed).Equal(5)
	gt.V(t, rs[len(rs)-1].Result).Equal(fail)
}

func TestComplianceEvaluator_CustomWindow(t *testing.T) {
	e, err := model.NewComplianceEvaluator(config.Compliance{Window: 2, CompliantMin: 100, PartialMin: 50})
	gt.NoError(t, err).Required()
	gt.V(t, e.Window()).Equal(2)

	gt.V(t, e.Evaluate(results(pass, fail, fail)).Status).Equal(types.CompliancePartiallyCompliant)
	gt.V(t, e.Evaluate(results(pass, pass, fail)).Status).Equal(types.ComplianceCompliant)

	_, err = model.NewComplianceEvaluator(config.Compliance{Window: 0})
	gt.Error(t, err)
}
