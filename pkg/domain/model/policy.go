package model

import "time"

// Policy is a governance policy linked to controls and statements
type Policy struct {
	Meta
	Number string `json:"number"`
	Name   string `json:"name"`
}

func NewPolicy(number, name string) *Policy {
	return &Policy{Meta: Meta{ID: NewID()}, Number: number, Name: name}
}

func (p *Policy) Clone() *Policy {
	c := *p
	return &c
}

// PolicyStatement is a single statement belonging to a policy
type PolicyStatement struct {
	Meta
	Number string `json:"number"`
	Name   string `json:"name"`
}

func NewPolicyStatement(number, name string) *PolicyStatement {
	return &PolicyStatement{Meta: Meta{ID: NewID()}, Number: number, Name: name}
}

func (p *PolicyStatement) Clone() *PolicyStatement {
	c := *p
	return &c
}

// Assessment is a point-in-time assessment of a risk
type Assessment struct {
	Meta
	RiskID     string    `json:"risk_id"`
	Likelihood int       `json:"likelihood"`
	Impact     int       `json:"impact"`
	AssessedAt time.Time `json:"assessed_at"`
}

func NewAssessment(riskID string, likelihood, impact int, at time.Time) *Assessment {
	return &Assessment{
		Meta:       Meta{ID: NewID()},
		RiskID:     riskID,
		Likelihood: likelihood,
		Impact:     impact,
		AssessedAt: at,
	}
}

func (a *Assessment) Clone() *Assessment {
	c := *a
	return &c
}
