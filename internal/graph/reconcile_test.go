package graph

import (
	"testing"
	"time"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rel(id int64, src, dst entity.Ref, kind entity.RelationKind, created time.Time) entity.Relationship {
	return entity.Relationship{ID: id, Source: src, Target: dst, Kind: kind, CreatedAt: created}
}

func TestReconciler_DanglingThenResolved(t *testing.T) {
	s := newTestStore()
	r := NewReconciler(logger.Discard())
	s.AddNode(topicNode(1, "AI", 0, 0))

	rels := []entity.Relationship{
		rel(1, entity.TopicRef(1), entity.ToolRef(5), entity.RelImplements, time.Unix(0, 0)),
	}

	res := r.Reconcile(s, rels)
	assert.Empty(t, res.Edges)
	require.Len(t, res.Dangling, 1)
	assert.Equal(t, "missing_target", res.Dangling[0].Reason)
	assert.Empty(t, r.Apply(s, rels))

	s.AddNode(Node{Ref: entity.ToolRef(5), Payload: &entity.Tool{ID: 5, Name: "PyTorch"}})
	added := r.Apply(s, rels)
	require.Len(t, added, 1)
	assert.Equal(t, EdgeID(entity.ToolRef(5), entity.TopicRef(1), entity.RelImplements), added[0].ID)
}

func TestReconciler_DuplicatesEarliestWins(t *testing.T) {
	s := newTestStore()
	r := NewReconciler(logger.Discard())
	s.AddNode(topicNode(1, "A", 0, 0))
	s.AddNode(topicNode(2, "B", 0, 0))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rels := []entity.Relationship{
		rel(7, entity.TopicRef(2), entity.TopicRef(1), entity.RelRelated, base.Add(time.Hour)),
		rel(9, entity.TopicRef(1), entity.TopicRef(2), entity.RelRelated, base),
		rel(3, entity.TopicRef(1), entity.TopicRef(2), entity.RelRelated, base.Add(2*time.Hour)),
	}

	res := r.Reconcile(s, rels)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, 2, res.Duplicates)
	// Row 9 is the earliest, so its direction is kept.
	assert.Equal(t, entity.TopicRef(1), res.Edges[0].Source)
	assert.Equal(t, entity.TopicRef(2), res.Edges[0].Target)
}

func TestReconciler_TieBreakByID(t *testing.T) {
	s := newTestStore()
	r := NewReconciler(logger.Discard())
	s.AddNode(topicNode(1, "A", 0, 0))
	s.AddNode(topicNode(2, "B", 0, 0))

	same := time.Unix(100, 0)
	rels := []entity.Relationship{
		rel(8, entity.TopicRef(1), entity.TopicRef(2), entity.RelRelated, same),
		rel(4, entity.TopicRef(2), entity.TopicRef(1), entity.RelRelated, same),
	}

	res := r.Reconcile(s, rels)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, entity.TopicRef(2), res.Edges[0].Source)
}

func TestReconciler_SeedScenario(t *testing.T) {
	s := newTestStore()
	r := NewReconciler(logger.Discard())
	s.AddNode(topicNode(1, "AI", 0, 0))
	s.AddNode(topicNode(2, "ML", 300, 0))

	added := r.Apply(s, []entity.Relationship{
		rel(1, entity.TopicRef(1), entity.TopicRef(2), entity.RelParentChild, time.Unix(0, 0)),
	})
	assert.Len(t, added, 1)

	nodes, edges := s.Len()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)

	// A second pass over the same rows adds nothing.
	assert.Empty(t, r.Apply(s, []entity.Relationship{
		rel(2, entity.TopicRef(2), entity.TopicRef(1), entity.RelParentChild, time.Unix(5, 0)),
	}))
}

func TestReconciler_DoesNotMutateInput(t *testing.T) {
	s := newTestStore()
	r := NewReconciler(logger.Discard())
	rels := []entity.Relationship{
		rel(2, entity.TopicRef(1), entity.TopicRef(2), entity.RelRelated, time.Unix(10, 0)),
		rel(1, entity.TopicRef(1), entity.TopicRef(3), entity.RelRelated, time.Unix(0, 0)),
	}
	r.Reconcile(s, rels)
	assert.Equal(t, int64(2), rels[0].ID)
}
