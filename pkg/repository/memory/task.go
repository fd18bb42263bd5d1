package memory

import (
	"context"
	"slices"
	"time"

	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

type taskRepository struct {
	*table[model.Task, *model.Task]
}

func newTaskRepository() *taskRepository {
	return &taskRepository{table: newTable[model.Task](types.EntityTask)}
}

func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	tasks := r.filter(func(t *model.Task) bool { return t.IsOverdue(now) })

	slices.SortStableFunc(tasks, func(a, b *model.Task) int {
		return a.DueDate.Compare(b.DueDate)
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}
