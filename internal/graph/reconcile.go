package graph

import (
	"sort"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/charmbracelet/log"
)

// NodeSet is the view of the store the reconciler needs.
type NodeSet interface {
	HasNode(ref entity.Ref) bool
}

// DanglingInfo describes a relationship dropped because an endpoint is not drawn.
type DanglingInfo struct {
	RelationshipID int64               `json:"relationship_id"`
	Source         entity.Ref          `json:"source"`
	Target         entity.Ref          `json:"target"`
	Kind           entity.RelationKind `json:"kind"`
	Reason         string              `json:"reason"` // "missing_source", "missing_target", or "missing_both"
}

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	Edges      []Edge
	Dangling   []DanglingInfo
	Duplicates int
}

// Reconciler turns raw relationship rows into the unique edge set a store
// should hold.
type Reconciler struct {
	log *log.Logger
}

// NewReconciler creates a reconciler. A nil logger uses the process logger.
func NewReconciler(l *log.Logger) *Reconciler {
	if l == nil {
		l = logger.With("reconcile")
	}
	return &Reconciler{log: l}
}

// Reconcile computes the edges for rels given the nodes currently in nodes.
// Rows are considered earliest-created first (then lowest id), and only the
// first row for each undirected identity survives. Rows with an endpoint
// missing from nodes are reported as dangling and dropped; they are
// reconsidered on a later pass once the endpoint exists.
func (r *Reconciler) Reconcile(nodes NodeSet, rels []entity.Relationship) ReconcileResult {
	ordered := make([]entity.Relationship, len(rels))
	copy(ordered, rels)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	var res ReconcileResult
	seen := make(map[entity.PairKey]bool, len(ordered))
	for _, rel := range ordered {
		key := rel.Key()
		if seen[key] {
			res.Duplicates++
			continue
		}

		hasSource := nodes.HasNode(rel.Source)
		hasTarget := nodes.HasNode(rel.Target)
		if !hasSource || !hasTarget {
			res.Dangling = append(res.Dangling, DanglingInfo{
				RelationshipID: rel.ID,
				Source:         rel.Source,
				Target:         rel.Target,
				Kind:           rel.Kind,
				Reason:         danglingReason(hasSource, hasTarget),
			})
			continue
		}

		seen[key] = true
		res.Edges = append(res.Edges, EdgeFromRelationship(rel))
	}

	if len(res.Dangling) > 0 || res.Duplicates > 0 {
		r.log.Debug("reconciled relationships",
			"rows", len(rels), "edges", len(res.Edges),
			"dangling", len(res.Dangling), "duplicates", res.Duplicates)
	}
	return res
}

// Apply reconciles rels against s and adds the surviving edges. It returns
// only the edges that were not already present.
func (r *Reconciler) Apply(s *Store, rels []entity.Relationship) []Edge {
	res := r.Reconcile(s, rels)
	var added []Edge
	for _, e := range res.Edges {
		if s.AddEdge(e) {
			added = append(added, e)
		}
	}
	return added
}
