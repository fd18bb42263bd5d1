package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// row is satisfied by pointers to every model entity
type row[T any] interface {
	*T
	GetMeta() *model.Meta
	Clone() *T
}

// table is an in-memory entity table. Entities are copied on the way in
// and on the way out so callers never share state with the store.
type table[T any, P row[T]] struct {
	mu   sync.RWMutex
	kind types.EntityKind
	rows map[string]*T
	now  func() time.Time
}

func newTable[T any, P row[T]](kind types.EntityKind) *table[T, P] {
	return &table[T, P]{
		kind: kind,
		rows: make(map[string]*T),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (t *table[T, P]) Create(ctx context.Context, v *T) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	created := P(v).Clone()
	meta := P(created).GetMeta()
	if meta.ID == "" {
		meta.ID = model.NewID()
	}
	if _, exists := t.rows[meta.ID]; exists {
		return nil, goerr.Wrap(model.ErrConflict, "entity already exists",
			goerr.V(model.EntityKindKey, t.kind),
			goerr.V(model.EntityIDKey, meta.ID))
	}

	now := t.now()
	meta.Version = 1
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now

	t.rows[meta.ID] = created
	return P(created).Clone(), nil
}

func (t *table[T, P]) Get(ctx context.Context, id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, exists := t.rows[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "entity not found",
			goerr.V(model.EntityKindKey, t.kind),
			goerr.V(model.EntityIDKey, id))
	}
	return P(v).Clone(), nil
}

func (t *table[T, P]) List(ctx context.Context, opts ...interfaces.ListOption) ([]*T, error) {
	return t.filter(nil, opts...), nil
}

// filter returns copies of rows matching match, ordered by ID and paged by opts
func (t *table[T, P]) filter(match func(*T) bool, opts ...interfaces.ListOption) []*T {
	cfg := interfaces.BuildListConfig(opts...)

	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.rows))
	for id, v := range t.rows {
		if cfg.StartAfter() != "" && id <= cfg.StartAfter() {
			continue
		}
		if match != nil && !match(v) {
			continue
		}
		ids = append(ids, id)
	}
	slices.SortFunc(ids, strings.Compare)

	if cfg.Limit() > 0 && len(ids) > cfg.Limit() {
		ids = ids[:cfg.Limit()]
	}

	result := make([]*T, 0, len(ids))
	for _, id := range ids {
		result = append(result, P(t.rows[id]).Clone())
	}
	return result
}

func (t *table[T, P]) Update(ctx context.Context, v *T, opts ...interfaces.WriteOption) (*T, error) {
	wo := interfaces.BuildWriteOptions(opts...)

	t.mu.Lock()
	defer t.mu.Unlock()

	in := P(v).GetMeta()
	existing, exists := t.rows[in.ID]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "entity not found",
			goerr.V(model.EntityKindKey, t.kind),
			goerr.V(model.EntityIDKey, in.ID))
	}
	current := P(existing).GetMeta()
	if current.Version != in.Version {
		return nil, goerr.Wrap(model.ErrConflict, "version mismatch",
			goerr.V(model.EntityKindKey, t.kind),
			goerr.V(model.EntityIDKey, in.ID),
			goerr.V(model.VersionKey, in.Version),
			goerr.V("stored_version", current.Version))
	}

	updated := P(v).Clone()
	meta := P(updated).GetMeta()
	meta.Version = current.Version + 1
	meta.CreatedAt = current.CreatedAt
	if wo.PreserveAudit {
		meta.UpdatedAt = current.UpdatedAt
		meta.UpdatedBy = current.UpdatedBy
	} else {
		meta.UpdatedAt = t.now()
	}

	t.rows[meta.ID] = updated
	return P(updated).Clone(), nil
}

func (t *table[T, P]) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rows[id]; !exists {
		return goerr.Wrap(model.ErrNotFound, "entity not found",
			goerr.V(model.EntityKindKey, t.kind),
			goerr.V(model.EntityIDKey, id))
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T, P]) exists(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rows[id]
	return ok
}
