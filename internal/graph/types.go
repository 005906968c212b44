// Package graph holds the live node and edge set drawn for one browsing
// session, and reconciles stored relationships into unique edges.
package graph

import (
	"math"

	"github.com/aigraph/aigraph/internal/entity"
)

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Position) Dist(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Node is an entity placed on the canvas.
type Node struct {
	Ref      entity.Ref    `json:"ref"`
	Position Position      `json:"position"`
	Payload  entity.Entity `json:"payload"`
}

// Edge is a unique undirected link between two nodes. ID is derived from
// the endpoints and kind, so (A, B) and (B, A) share an ID.
type Edge struct {
	ID     string              `json:"id"`
	Source entity.Ref          `json:"source"`
	Target entity.Ref          `json:"target"`
	Kind   entity.RelationKind `json:"kind"`
}

// NewEdge builds an edge with its derived ID. Source and Target keep the
// direction given.
func NewEdge(source, target entity.Ref, kind entity.RelationKind) Edge {
	return Edge{
		ID:     EdgeID(source, target, kind),
		Source: source,
		Target: target,
		Kind:   kind,
	}
}

// EdgeFromRelationship converts a stored relationship to an edge.
func EdgeFromRelationship(r entity.Relationship) Edge {
	return NewEdge(r.Source, r.Target, r.Kind)
}

// EdgeID returns the order-independent identity of a link.
func EdgeID(a, b entity.Ref, kind entity.RelationKind) string {
	return entity.NewPairKey(a, b, kind).String()
}

// Snapshot is a copy of the store contents in insertion order.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Delta lists what one operation newly added to a store.
type Delta struct {
	AddedNodes []Node `json:"added_nodes"`
	AddedEdges []Edge `json:"added_edges"`
}

// IsEmpty reports whether nothing was added.
func (d Delta) IsEmpty() bool {
	return len(d.AddedNodes) == 0 && len(d.AddedEdges) == 0
}
