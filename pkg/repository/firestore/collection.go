package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type row[T any] interface {
	*T
	GetMeta() *model.Meta
	Clone() *T
}

// collection stores one entity kind as documents keyed by entity ID.
// Model structs are stored as-is, so query paths use Go field names.
type collection[T any, P row[T]] struct {
	client           *firestore.Client
	collectionPrefix string
	name             string
	kind             types.EntityKind
}

func newCollection[T any, P row[T]](client *firestore.Client, name string, kind types.EntityKind) *collection[T, P] {
	return &collection[T, P]{
		client: client,
		name:   name,
		kind:   kind,
	}
}

// CollectionName returns the Firestore collection name of an entity
// collection under the given prefix
func CollectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func (c *collection[T, P]) collectionName() string {
	return CollectionName(c.collectionPrefix, c.name)
}

func (c *collection[T, P]) ref() *firestore.CollectionRef {
	return c.client.Collection(c.collectionName())
}

func (c *collection[T, P]) notFound(id string) error {
	return goerr.Wrap(model.ErrNotFound, "entity not found",
		goerr.V(model.EntityKindKey, c.kind),
		goerr.V(model.EntityIDKey, id))
}

func (c *collection[T, P]) Create(ctx context.Context, v *T) (*T, error) {
	created := P(v).Clone()
	meta := P(created).GetMeta()
	if meta.ID == "" {
		meta.ID = model.NewID()
	}

	now := time.Now().UTC()
	meta.Version = 1
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now

	if _, err := c.ref().Doc(meta.ID).Create(ctx, created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrConflict, "entity already exists",
				goerr.V(model.EntityKindKey, c.kind),
				goerr.V(model.EntityIDKey, meta.ID))
		}
		return nil, goerr.Wrap(model.ErrStoreWrite, "failed to create entity",
			goerr.V(model.EntityKindKey, c.kind),
			goerr.V(model.EntityIDKey, meta.ID),
			goerr.V("error", err.Error()))
	}

	return created, nil
}

func (c *collection[T, P]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, c.notFound(id)
	}

	doc, err := c.ref().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, c.notFound(id)
		}
		return nil, goerr.Wrap(err, "failed to get entity",
			goerr.V(model.EntityKindKey, c.kind),
			goerr.V(model.EntityIDKey, id))
	}

	return c.decode(doc)
}

func (c *collection[T, P]) decode(doc *firestore.DocumentSnapshot) (*T, error) {
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, goerr.Wrap(err, "failed to decode entity",
			goerr.V(model.EntityKindKey, c.kind),
			goerr.V(model.EntityIDKey, doc.Ref.ID))
	}
	return &v, nil
}

func (c *collection[T, P]) List(ctx context.Context, opts ...interfaces.ListOption) ([]*T, error) {
	return c.page(ctx, c.ref().Query, opts...)
}

// page orders q by document ID and applies the paging options
func (c *collection[T, P]) page(ctx context.Context, q firestore.Query, opts ...interfaces.ListOption) ([]*T, error) {
	cfg := interfaces.BuildListConfig(opts...)

	q = q.OrderBy(firestore.DocumentID, firestore.Asc)
	if cfg.StartAfter() != "" {
		q = q.StartAfter(cfg.StartAfter())
	}
	if cfg.Limit() > 0 {
		q = q.Limit(cfg.Limit())
	}
	return c.query(ctx, q)
}

// query runs q and decodes every document
func (c *collection[T, P]) query(ctx context.Context, q firestore.Query) ([]*T, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var result []*T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate entities", goerr.V(model.EntityKindKey, c.kind))
		}

		v, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	if result == nil {
		result = []*T{}
	}
	return result, nil
}

// Update performs the compare-and-set inside a transaction so the version
// check and the write see the same document.
func (c *collection[T, P]) Update(ctx context.Context, v *T, opts ...interfaces.WriteOption) (*T, error) {
	wo := interfaces.BuildWriteOptions(opts...)
	in := P(v).GetMeta()
	docRef := c.ref().Doc(in.ID)

	var updated *T
	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return c.notFound(in.ID)
			}
			return goerr.Wrap(err, "failed to get entity in transaction")
		}

		existing, err := c.decode(doc)
		if err != nil {
			return err
		}
		current := P(existing).GetMeta()
		if current.Version != in.Version {
			return goerr.Wrap(model.ErrConflict, "version mismatch",
				goerr.V(model.EntityKindKey, c.kind),
				goerr.V(model.EntityIDKey, in.ID),
				goerr.V(model.VersionKey, in.Version),
				goerr.V("stored_version", current.Version))
		}

		next := P(v).Clone()
		meta := P(next).GetMeta()
		meta.Version = current.Version + 1
		meta.CreatedAt = current.CreatedAt
		if wo.PreserveAudit {
			meta.UpdatedAt = current.UpdatedAt
			meta.UpdatedBy = current.UpdatedBy
		} else {
			meta.UpdatedAt = time.Now().UTC()
		}

		if err := tx.Set(docRef, next); err != nil {
			return goerr.Wrap(model.ErrStoreWrite, "failed to set entity",
				goerr.V("error", err.Error()))
		}
		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrStoreWrite) {
			return nil, err
		}
		return nil, goerr.Wrap(model.ErrStoreWrite, "transaction failed",
			goerr.V(model.EntityKindKey, c.kind),
			goerr.V(model.EntityIDKey, in.ID),
			goerr.V("error", err.Error()))
	}

	return updated, nil
}

func (c *collection[T, P]) Delete(ctx context.Context, id string) error {
	if _, err := c.ref().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return c.notFound(id)
		}
		return goerr.Wrap(model.ErrStoreWrite, "failed to delete entity",
			goerr.V(model.EntityKindKey, c.kind),
			goerr.V(model.EntityIDKey, id),
			goerr.V("error", err.Error()))
	}
	return nil
}

func (c *collection[T, P]) exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	doc, err := c.ref().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check entity",
			goerr.V(model.EntityKindKey, c.kind),
			goerr.V(model.EntityIDKey, id))
	}
	return doc.Exists(), nil
}
