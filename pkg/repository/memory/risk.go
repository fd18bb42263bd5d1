package memory

import (
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

type riskRepository struct {
	*table[model.Risk, *model.Risk]
}

func newRiskRepository() *riskRepository {
	return &riskRepository{table: newTable[model.Risk](types.EntityRisk)}
}

type policyRepository struct {
	*table[model.Policy, *model.Policy]
}

func newPolicyRepository() *policyRepository {
	return &policyRepository{table: newTable[model.Policy](types.EntityPolicy)}
}

type policyStatementRepository struct {
	*table[model.PolicyStatement, *model.PolicyStatement]
}

func newPolicyStatementRepository() *policyStatementRepository {
	return &policyStatementRepository{table: newTable[model.PolicyStatement](types.EntityPolicyStatement)}
}

type assessmentRepository struct {
	*table[model.Assessment, *model.Assessment]
}

func newAssessmentRepository() *assessmentRepository {
	return &assessmentRepository{table: newTable[model.Assessment](types.EntityAssessment)}
}
