package memory

import (
	"context"
	"slices"

	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

type controlRepository struct {
	*table[model.Control, *model.Control]
}

func newControlRepository() *controlRepository {
	return &controlRepository{table: newTable[model.Control](types.EntityControl)}
}

func (r *controlRepository) ListActive(ctx context.Context, opts ...interfaces.ListOption) ([]*model.Control, error) {
	return r.filter(func(c *model.Control) bool { return c.Active }, opts...), nil
}

type testResultRepository struct {
	*table[model.TestResult, *model.TestResult]
}

func newTestResultRepository() *testResultRepository {
	return &testResultRepository{table: newTable[model.TestResult](types.EntityTestResult)}
}

func (r *testResultRepository) ListRecent(ctx context.Context, controlID string, limit int) ([]*model.TestResult, error) {
	results := r.filter(func(t *model.TestResult) bool {
		return t.ControlID == controlID && t.Active
	})

	slices.SortStableFunc(results, func(a, b *model.TestResult) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
