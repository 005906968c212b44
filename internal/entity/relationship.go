package entity

import (
	"fmt"
	"time"
)

// RelationKind classifies a relationship.
type RelationKind string

const (
	RelParentChild RelationKind = "parent-child"
	RelRelated     RelationKind = "related"
	RelExtracted   RelationKind = "extracted"
	RelImplements  RelationKind = "implements"
	RelEnables     RelationKind = "enables"
	RelIncludes    RelationKind = "includes"
)

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	switch k {
	case RelParentChild, RelRelated, RelExtracted, RelImplements, RelEnables, RelIncludes:
		return true
	}
	return false
}

// Relationship is a stored link between two entities. The repository may
// hold several rows for the same unordered pair and kind.
type Relationship struct {
	ID        int64        `json:"id"`
	Source    Ref          `json:"source"`
	Target    Ref          `json:"target"`
	Kind      RelationKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// ValidateForCreate checks endpoints and kind.
func (r *Relationship) ValidateForCreate() error {
	if err := r.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := r.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if r.Source == r.Target {
		return ErrSelfRelation
	}
	return nil
}

// Other returns the endpoint opposite to ref. ok is false when ref is not
// an endpoint.
func (r *Relationship) Other(ref Ref) (other Ref, ok bool) {
	switch ref {
	case r.Source:
		return r.Target, true
	case r.Target:
		return r.Source, true
	}
	return Ref{}, false
}

// Key returns the order-independent identity of the relationship.
func (r *Relationship) Key() PairKey {
	return NewPairKey(r.Source, r.Target, r.Kind)
}

// PairKey identifies an undirected link: two endpoints in canonical order
// plus the relation kind.
type PairKey struct {
	Low  Ref
	High Ref
	Kind RelationKind
}

// NewPairKey sorts a and b by kind then id so that (a, b) and (b, a) give
// the same key.
func NewPairKey(a, b Ref, kind RelationKind) PairKey {
	if b.Less(a) {
		a, b = b, a
	}
	return PairKey{Low: a, High: b, Kind: kind}
}

// String renders the key as "<low>|<high>|<kind>".
func (k PairKey) String() string {
	return k.Low.String() + "|" + k.High.String() + "|" + string(k.Kind)
}
