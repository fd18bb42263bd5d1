package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Rules holds the typed rule configuration consumed by the rule engine.
// It is built from the TOML configuration file at startup and validated
// before any component is constructed.
type Rules struct {
	Ratings     RatingThresholds
	Transitions Transitions
	Compliance  Compliance
	Escalation  Escalation
	Assignment  Assignment
	Roles       map[string][]string // principal -> granted roles
	Remaps      []RemapTable
}

// RatingThresholds are inclusive upper bounds of the low, medium and high
// buckets. Scores above HighMax are critical.
type RatingThresholds struct {
	LowMax    int
	MediumMax int
	HighMax   int
}

// Transitions holds transition tables keyed by state name. A nil table
// means the built-in default for that kind.
type Transitions struct {
	Risk    map[string][]string
	Control map[string][]string
	Issue   map[string][]string
}

// Compliance holds evaluation parameters
type Compliance struct {
	Window       int
	CompliantMin float64 // minimum pass rate (percent) for compliant
	PartialMin   float64 // minimum pass rate (percent) for partially_compliant
}

// Escalation holds overdue task escalation parameters
type Escalation struct {
	AfterDays int
}

// Group is an assignment group and the manager who receives escalations
type Group struct {
	ID      types.GroupID
	Name    string
	Manager string
}

// Assignment maps risk categories to their default assignment group
type Assignment struct {
	CategoryGroups map[types.CategoryID]types.GroupID
	Groups         []Group
}

// RemapTable is a named static value mapping applied by bulk remap
type RemapTable struct {
	Name          string
	Target        types.RemapTarget
	Mapping       map[string]string
	BatchLimit    int
	PreserveAudit bool
}

const (
	DefaultRemapBatchLimit  = 200
	DefaultComplianceWindow = 5
	DefaultEscalationDays   = 7
)

// DefaultRules returns the rule configuration used when no file is given
func DefaultRules() *Rules {
	return &Rules{
		Ratings: RatingThresholds{LowMax: 4, MediumMax: 9, HighMax: 15},
		Compliance: Compliance{
			Window:       DefaultComplianceWindow,
			CompliantMin: 80,
			PartialMin:   50,
		},
		Escalation: Escalation{AfterDays: DefaultEscalationDays},
		Assignment: Assignment{
			CategoryGroups: map[types.CategoryID]types.GroupID{
				"operational": "it_risk_management",
				"financial":   "financial_risk_team",
				"compliance":  "compliance_team",
				"strategic":   "executive_risk_committee",
				"technology":  "it_risk_management",
				"third_party": "vendor_risk_management",
			},
			Groups: []Group{
				{ID: "it_risk_management", Name: "IT Risk Management"},
				{ID: "financial_risk_team", Name: "Financial Risk Team"},
				{ID: "compliance_team", Name: "Compliance Team"},
				{ID: "executive_risk_committee", Name: "Executive Risk Committee"},
				{ID: "vendor_risk_management", Name: "Vendor Risk Management"},
			},
		},
		Roles: map[string][]string{},
	}
}

// Validate checks every section of the rule configuration. Transition
// tables are validated when the state machine is built.
func (r *Rules) Validate() error {
	if err := r.Ratings.Validate(); err != nil {
		return err
	}
	if err := r.Compliance.Validate(); err != nil {
		return err
	}
	if r.Escalation.AfterDays < 0 {
		return goerr.New("escalation days must not be negative", goerr.V("after_days", r.Escalation.AfterDays))
	}
	if err := r.Assignment.Validate(); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(r.Remaps))
	for _, t := range r.Remaps {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := names[t.Name]; dup {
			return goerr.New("duplicate remap table name", goerr.V("name", t.Name))
		}
		names[t.Name] = struct{}{}
	}
	return nil
}

// Validate checks the bounds are strictly increasing and leave room for critical
func (t RatingThresholds) Validate() error {
	if t.LowMax < 1 || t.LowMax >= t.MediumMax || t.MediumMax >= t.HighMax || t.HighMax >= 25 {
		return goerr.New("rating thresholds must satisfy 1 <= low < medium < high < 25",
			goerr.V("low", t.LowMax),
			goerr.V("medium", t.MediumMax),
			goerr.V("high", t.HighMax))
	}
	return nil
}

// Validate checks the window and pass rate thresholds
func (c Compliance) Validate() error {
	if c.Window < 1 {
		return goerr.New("compliance window must be positive", goerr.V("window", c.Window))
	}
	if c.PartialMin < 0 || c.PartialMin > c.CompliantMin || c.CompliantMin > 100 {
		return goerr.New("compliance thresholds must satisfy 0 <= partial <= compliant <= 100",
			goerr.V("partial", c.PartialMin),
			goerr.V("compliant", c.CompliantMin))
	}
	return nil
}

// Validate checks every mapped category and group
func (a Assignment) Validate() error {
	known := make(map[types.GroupID]struct{}, len(a.Groups))
	for _, g := range a.Groups {
		if err := g.ID.Validate(); err != nil {
			return goerr.Wrap(err, "invalid group", goerr.V("group", g.ID))
		}
		known[g.ID] = struct{}{}
	}
	for category, group := range a.CategoryGroups {
		if err := category.Validate(); err != nil {
			return goerr.Wrap(err, "invalid category in category groups", goerr.V("category", category))
		}
		if _, ok := known[group]; !ok {
			return goerr.New("category is mapped to an undefined group",
				goerr.V("category", category),
				goerr.V("group", group))
		}
	}
	return nil
}

// GroupFor returns the default assignment group of a category
func (a Assignment) GroupFor(category types.CategoryID) (types.GroupID, bool) {
	g, ok := a.CategoryGroups[category]
	return g, ok
}

// ManagerOf returns the manager of a group, or "" when none is configured
func (a Assignment) ManagerOf(group types.GroupID) string {
	for _, g := range a.Groups {
		if g.ID == group {
			return g.Manager
		}
	}
	return ""
}

// Validate checks the remap table. Category targets require category IDs on
// both sides, group targets require group IDs.
func (t RemapTable) Validate() error {
	if t.Name == "" {
		return goerr.New("remap table name is required")
	}
	if !t.Target.IsValid() {
		return goerr.New("invalid remap target", goerr.V("table", t.Name), goerr.V("target", t.Target))
	}
	if len(t.Mapping) == 0 {
		return goerr.New("remap table has no mapping", goerr.V("table", t.Name))
	}
	if t.BatchLimit < 0 {
		return goerr.New("batch limit must not be negative", goerr.V("table", t.Name))
	}

	check := func(v string) error {
		if t.Target == types.RemapRiskCategory {
			return types.CategoryID(v).Validate()
		}
		return types.GroupID(v).Validate()
	}
	for from, to := range t.Mapping {
		if from == to {
			return goerr.New("remap entry maps a value to itself", goerr.V("table", t.Name), goerr.V("value", from))
		}
		if err := check(from); err != nil {
			return goerr.Wrap(err, "invalid remap source value", goerr.V("table", t.Name))
		}
		if err := check(to); err != nil {
			return goerr.Wrap(err, "invalid remap target value", goerr.V("table", t.Name))
		}
	}
	return nil
}

// Limit returns the batch limit, applying the default when unset
func (t RemapTable) Limit() int {
	if t.BatchLimit <= 0 {
		return DefaultRemapBatchLimit
	}
	return t.BatchLimit
}

// Remap finds a remap table by name
func (r *Rules) Remap(name string) (RemapTable, bool) {
	for _, t := range r.Remaps {
		if t.Name == name {
			return t, true
		}
	}
	return RemapTable{}, false
}
