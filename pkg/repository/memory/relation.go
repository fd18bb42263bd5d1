package memory

import (
	"context"

	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

type relationRepository struct {
	*table[model.Relation, *model.Relation]
}

func newRelationRepository() *relationRepository {
	// relation rows are not entities addressable by Ref; the kind is only
	// used in error values
	return &relationRepository{table: newTable[model.Relation]("relation")}
}

func (r *relationRepository) ListByKind(ctx context.Context, kind types.RelationKind, opts ...interfaces.ListOption) ([]*model.Relation, error) {
	return r.filter(func(rel *model.Relation) bool { return rel.Kind == kind }, opts...), nil
}

func (r *relationRepository) ListByRef(ctx context.Context, kind types.RelationKind, ref model.Ref) ([]*model.Relation, error) {
	return r.filter(func(rel *model.Relation) bool {
		return rel.Kind == kind && (rel.Left == ref || rel.Right == ref)
	}), nil
}
