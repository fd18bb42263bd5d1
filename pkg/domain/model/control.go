package model

import (
	"time"

	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Control is a compliance control. ComplianceStatus is a cached value from
// the last evaluation and may be stale between sweeps.
type Control struct {
	Meta
	Number             string                 `json:"number"`
	Name               string                 `json:"name"`
	Category           string                 `json:"category"`
	State              types.ControlState     `json:"state"`
	ComplianceStatus   types.ComplianceStatus `json:"compliance_status"`
	LastEvaluationDate *time.Time             `json:"last_evaluation_date,omitempty"`
	Active             bool                   `json:"active"`
	WorkNotes          []WorkNote             `json:"work_notes,omitempty"`
}

// NewControl creates an active control in draft state
func NewControl(number, name string) *Control {
	return &Control{
		Meta:             Meta{ID: NewID()},
		Number:           number,
		Name:             name,
		State:            types.ControlStateDraft,
		ComplianceStatus: types.ComplianceNotAssessed,
		Active:           true,
	}
}

// Clone returns a deep copy of the control
func (c *Control) Clone() *Control {
	n := *c
	n.LastEvaluationDate = cloneTime(c.LastEvaluationDate)
	n.WorkNotes = cloneNotes(c.WorkNotes)
	return &n
}

// AddWorkNote appends an audit note
func (c *Control) AddWorkNote(author, body string, at time.Time) {
	c.WorkNotes = append(c.WorkNotes, WorkNote{Author: author, Body: body, CreatedAt: at})
}

func (c *Control) Ref() Ref {
	return ControlRef(c.ID)
}

// TestResult is one recorded test of a control
type TestResult struct {
	Meta
	ControlID string            `json:"control_id"`
	Result    types.TestOutcome `json:"result"`
	Active    bool              `json:"active"`
}

// NewTestResult creates an active test result recorded at the given time
func NewTestResult(controlID string, result types.TestOutcome, at time.Time) *TestResult {
	return &TestResult{
		Meta:      Meta{ID: NewID(), CreatedAt: at},
		ControlID: controlID,
		Result:    result,
		Active:    true,
	}
}

func (t *TestResult) Clone() *TestResult {
	c := *t
	return &c
}
