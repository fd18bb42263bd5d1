package model

import (
	"time"

	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Risk is a tracked risk. Likelihood and Impact are 0 while unset; Score
// and Rating are derived from them by the risk matrix.
type Risk struct {
	Meta
	Number            string           `json:"number"`
	Name              string           `json:"name"`
	Statement         string           `json:"statement"`
	Category          types.CategoryID `json:"category"`
	Likelihood        int              `json:"likelihood"`
	Impact            int              `json:"impact"`
	Score             int              `json:"score"`
	Rating            types.Rating     `json:"rating"`
	State             types.RiskState  `json:"state"`
	Owner             string           `json:"owner"`
	AssignmentGroup   types.GroupID    `json:"assignment_group"`
	LastControlReview *time.Time       `json:"last_control_review,omitempty"`
	SubmittedAt       *time.Time       `json:"submitted_at,omitempty"`
	WorkNotes         []WorkNote       `json:"work_notes,omitempty"`
}

// NewRisk creates a risk in draft state
func NewRisk(number, name string) *Risk {
	return &Risk{
		Meta:   Meta{ID: NewID()},
		Number: number,
		Name:   name,
		State:  types.RiskStateDraft,
	}
}

// Clone returns a deep copy of the risk
func (r *Risk) Clone() *Risk {
	c := *r
	c.LastControlReview = cloneTime(r.LastControlReview)
	c.SubmittedAt = cloneTime(r.SubmittedAt)
	c.WorkNotes = cloneNotes(r.WorkNotes)
	return &c
}

// AddWorkNote appends an audit note
func (r *Risk) AddWorkNote(author, body string, at time.Time) {
	r.WorkNotes = append(r.WorkNotes, WorkNote{Author: author, Body: body, CreatedAt: at})
}

// Ref returns a reference to the risk
func (r *Risk) Ref() Ref {
	return RiskRef(r.ID)
}

// RiskChange is a partial update of a risk. Nil fields are left untouched.
type RiskChange struct {
	Likelihood      *int              `json:"likelihood,omitempty"`
	Impact          *int              `json:"impact,omitempty"`
	State           *types.RiskState  `json:"state,omitempty"`
	Category        *types.CategoryID `json:"category,omitempty"`
	AssignmentGroup *types.GroupID    `json:"assignment_group,omitempty"`
	Owner           *string           `json:"owner,omitempty"`
	Name            *string           `json:"name,omitempty"`
	Statement       *string           `json:"statement,omitempty"`
}

// TouchesScore reports whether the change modifies likelihood or impact of r
func (c RiskChange) TouchesScore(r *Risk) bool {
	return (c.Likelihood != nil && *c.Likelihood != r.Likelihood) ||
		(c.Impact != nil && *c.Impact != r.Impact)
}

// ChangesState reports whether the change moves r to a different state
func (c RiskChange) ChangesState(r *Risk) bool {
	return c.State != nil && *c.State != r.State
}

// IsEmpty reports whether no field is set
func (c RiskChange) IsEmpty() bool {
	return c.Likelihood == nil && c.Impact == nil && c.State == nil && c.Category == nil &&
		c.AssignmentGroup == nil && c.Owner == nil && c.Name == nil && c.Statement == nil
}

// Apply copies the non-derived fields of the change onto r. Score, rating
// and state side effects are the caller's responsibility.
func (c RiskChange) Apply(r *Risk) {
	if c.Likelihood != nil {
		r.Likelihood = *c.Likelihood
	}
	if c.Impact != nil {
		r.Impact = *c.Impact
	}
	if c.State != nil {
		r.State = *c.State
	}
	if c.Category != nil {
		r.Category = *c.Category
	}
	if c.AssignmentGroup != nil {
		r.AssignmentGroup = *c.AssignmentGroup
	}
	if c.Owner != nil {
		r.Owner = *c.Owner
	}
	if c.Name != nil {
		r.Name = *c.Name
	}
	if c.Statement != nil {
		r.Statement = *c.Statement
	}
}
