package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

// UseCases wires the rule engine components over one repository
type UseCases struct {
	repo  interfaces.Repository
	rules *config.Rules
	sink  interfaces.NotificationSink
	now   func() time.Time

	Matrix       *model.RiskMatrix
	StateMachine *model.StateMachine
	Evaluator    *model.ComplianceEvaluator

	Relationship *RelationshipUseCase
	Compliance   *ComplianceUseCase
	Cascade      *CascadeUseCase
}

type Option func(*UseCases)

// WithRules sets the rule configuration. DefaultRules is used otherwise.
func WithRules(rules *config.Rules) Option {
	return func(uc *UseCases) {
		uc.rules = rules
	}
}

// WithNotificationSink sets where Deliver sends notifications
func WithNotificationSink(sink interfaces.NotificationSink) Option {
	return func(uc *UseCases) {
		uc.sink = sink
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

// New builds the pure components from the rules and wires the use cases.
// Invalid rules are rejected here so misconfiguration fails at startup.
func New(repo interfaces.Repository, opts ...Option) (*UseCases, error) {
	uc := &UseCases{
		repo:  repo,
		rules: config.DefaultRules(),
		now:   func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(uc)
	}

	if err := uc.rules.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid rule configuration")
	}

	var err error
	if uc.Matrix, err = model.NewRiskMatrix(uc.rules.Ratings); err != nil {
		return nil, goerr.Wrap(err, "failed to build risk matrix")
	}
	if uc.StateMachine, err = model.NewStateMachine(uc.rules.Transitions); err != nil {
		return nil, goerr.Wrap(err, "failed to build state machine")
	}
	if uc.Evaluator, err = model.NewComplianceEvaluator(uc.rules.Compliance); err != nil {
		return nil, goerr.Wrap(err, "failed to build compliance evaluator")
	}

	uc.Relationship = NewRelationshipUseCase(repo, uc.now)
	uc.Compliance = NewComplianceUseCase(repo, uc.Evaluator, uc.now)
	uc.Cascade = NewCascadeUseCase(repo, uc.rules, uc.Matrix, uc.StateMachine, uc.Relationship, uc.Compliance, uc.now)

	return uc, nil
}

// Rules returns the active rule configuration
func (uc *UseCases) Rules() *config.Rules {
	return uc.rules
}

// Deliver hands notifications to the configured sink. Without a sink they
// are only logged at debug level.
func (uc *UseCases) Deliver(ctx context.Context, notifications []model.Notification) {
	for _, n := range notifications {
		if uc.sink == nil {
			logging.From(ctx).Debug("notification dropped, no sink configured",
				"event", n.Event,
				"subject", n.Subject.String())
			continue
		}
		uc.sink.Emit(ctx, n)
	}
}
