package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Relation is an independent many-to-many row linking two entities. Left
// and Right follow the side order of the relation kind.
type Relation struct {
	Meta
	Kind  types.RelationKind `json:"kind"`
	Left  Ref                `json:"left"`
	Right Ref                `json:"right"`
}

// NewRelation creates a relation row after checking both sides match the kind
func NewRelation(kind types.RelationKind, left, right Ref) (*Relation, error) {
	if !kind.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "unknown relation kind", goerr.V("kind", kind))
	}
	wantLeft, wantRight := kind.Sides()
	if left.Kind != wantLeft || right.Kind != wantRight {
		return nil, goerr.Wrap(ErrValidation, "relation sides do not match kind",
			goerr.V("kind", kind),
			goerr.V("left", left.String()),
			goerr.V("right", right.String()))
	}
	if err := left.Validate(); err != nil {
		return nil, err
	}
	if err := right.Validate(); err != nil {
		return nil, err
	}
	return &Relation{Meta: Meta{ID: NewID()}, Kind: kind, Left: left, Right: right}, nil
}

func (r *Relation) Clone() *Relation {
	c := *r
	return &c
}

// Other returns the opposite side of anchor, or false when anchor is on neither side
func (r *Relation) Other(anchor Ref) (Ref, bool) {
	switch anchor {
	case r.Left:
		return r.Right, true
	case r.Right:
		return r.Left, true
	default:
		return Ref{}, false
	}
}
