package model

import (
	"maps"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// TransitionTable maps a state to the set of states reachable from it
type TransitionTable map[string]map[string]struct{}

// Verdict describes an accepted transition. Unconstrained is true when the
// from state is not listed in the table and any target was accepted.
type Verdict struct {
	Unconstrained bool
}

// StateMachine validates lifecycle transitions of risks, controls and issues
type StateMachine struct {
	tables map[types.EntityKind]TransitionTable
}

// DefaultRiskTransitions is the built-in risk lifecycle
func DefaultRiskTransitions() map[string][]string {
	return map[string][]string{
		"draft":   {"assess"},
		"assess":  {"draft", "treat"},
		"treat":   {"assess", "monitor"},
		"monitor": {"treat", "closed"},
		"closed":  {"monitor"},
	}
}

// DefaultControlTransitions is the built-in control lifecycle
func DefaultControlTransitions() map[string][]string {
	return map[string][]string{
		"draft":          {"implement", "not_applicable"},
		"implement":      {"draft", "assess", "not_applicable"},
		"assess":         {"implement", "monitor"},
		"monitor":        {"assess", "inactive", "retired", "closed"},
		"inactive":       {"monitor", "retired"},
		"not_applicable": {"draft"},
		"retired":        {},
		"closed":         {},
	}
}

// DefaultIssueTransitions is the built-in issue lifecycle. Closed issues
// cannot be reopened.
func DefaultIssueTransitions() map[string][]string {
	return map[string][]string{
		"open":    {"analyze", "closed"},
		"analyze": {"respond", "closed"},
		"respond": {"review", "closed"},
		"review":  {"respond", "closed"},
		"closed":  {},
	}
}

var stateValidators = map[types.EntityKind]func(string) bool{
	types.EntityRisk:    func(s string) bool { return types.RiskState(s).IsValid() },
	types.EntityControl: func(s string) bool { return types.ControlState(s).IsValid() },
	types.EntityIssue:   func(s string) bool { return types.IssueState(s).IsValid() },
}

// NewStateMachine builds a state machine from configured tables. Tables
// left nil fall back to the defaults. Every state name must be a valid
// state of its kind.
func NewStateMachine(cfg config.Transitions) (*StateMachine, error) {
	raw := map[types.EntityKind]map[string][]string{
		types.EntityRisk:    cfg.Risk,
		types.EntityControl: cfg.Control,
		types.EntityIssue:   cfg.Issue,
	}
	defaults := map[types.EntityKind]func() map[string][]string{
		types.EntityRisk:    DefaultRiskTransitions,
		types.EntityControl: DefaultControlTransitions,
		types.EntityIssue:   DefaultIssueTransitions,
	}

	sm := &StateMachine{tables: make(map[types.EntityKind]TransitionTable, len(raw))}
	for kind, table := range raw {
		if table == nil {
			table = defaults[kind]()
		}
		t, err := buildTable(kind, table)
		if err != nil {
			return nil, err
		}
		sm.tables[kind] = t
	}
	return sm, nil
}

// DefaultStateMachine returns a state machine with the built-in tables
func DefaultStateMachine() *StateMachine {
	sm, err := NewStateMachine(config.Transitions{})
	if err != nil {
		panic(err) // built-in tables are always valid
	}
	return sm
}

func buildTable(kind types.EntityKind, table map[string][]string) (TransitionTable, error) {
	valid := stateValidators[kind]
	out := make(TransitionTable, len(table))
	for from, targets := range table {
		if !valid(from) {
			return nil, goerr.New("unknown state in transition table",
				goerr.V(EntityKindKey, kind),
				goerr.V(FromStateKey, from))
		}
		set := make(map[string]struct{}, len(targets))
		for _, to := range targets {
			if !valid(to) {
				return nil, goerr.New("unknown target state in transition table",
					goerr.V(EntityKindKey, kind),
					goerr.V(FromStateKey, from),
					goerr.V(ToStateKey, to))
			}
			set[to] = struct{}{}
		}
		out[from] = set
	}
	return out, nil
}

// Validate checks whether kind may move from one state to another.
// Staying in the same state is always accepted.
func (sm *StateMachine) Validate(kind types.EntityKind, from, to string) (Verdict, error) {
	if from == to {
		return Verdict{}, nil
	}

	table, ok := sm.tables[kind]
	if !ok {
		return Verdict{Unconstrained: true}, nil
	}
	allowed, ok := table[from]
	if !ok {
		return Verdict{Unconstrained: true}, nil
	}
	if _, ok := allowed[to]; ok {
		return Verdict{}, nil
	}

	return Verdict{}, &TransitionError{
		Kind:    kind,
		From:    from,
		To:      to,
		Allowed: slices.Sorted(maps.Keys(allowed)),
	}
}

// Allowed returns the sorted states reachable from the given state, and
// false when the state is not listed in the table.
func (sm *StateMachine) Allowed(kind types.EntityKind, from string) ([]string, bool) {
	allowed, ok := sm.tables[kind][from]
	if !ok {
		return nil, false
	}
	return slices.Sorted(maps.Keys(allowed)), true
}
