package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	ErrUnknownRemapTable = goerr.New("unknown remap table")
	ErrUnknownSweep      = goerr.New("unknown sweep kind")
	ErrUnknownReference  = goerr.New("unknown reference field")
)

// Context keys for error values
const (
	RiskIDKey    = "risk_id"
	ControlIDKey = "control_id"
	TaskIDKey    = "task_id"
	IssueIDKey   = "issue_id"
	PolicyIDKey  = "policy_id"
	StatementKey = "policy_statement_id"
	SourceKey    = "source"
	RelationKey  = "relation"
	SweepKey     = "sweep"
	TableKey     = "table"
)
