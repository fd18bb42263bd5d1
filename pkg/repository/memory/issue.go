package memory

import (
	"context"

	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

type issueRepository struct {
	*table[model.Issue, *model.Issue]
}

func newIssueRepository() *issueRepository {
	return &issueRepository{table: newTable[model.Issue](types.EntityIssue)}
}

func (r *issueRepository) openBySource(source model.Ref) func(*model.Issue) bool {
	return func(i *model.Issue) bool {
		return i.Source == source && !i.IsClosed()
	}
}

func (r *issueRepository) ListOpenBySource(ctx context.Context, source model.Ref) ([]*model.Issue, error) {
	return r.filter(r.openBySource(source)), nil
}

func (r *issueRepository) CountOpenBySource(ctx context.Context, source model.Ref) (int, error) {
	match := r.openBySource(source)

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, i := range r.rows {
		if match(i) {
			count++
		}
	}
	return count, nil
}
