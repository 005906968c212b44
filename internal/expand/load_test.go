package expand

import (
	"context"
	"math"
	"testing"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Views(t *testing.T) {
	tests := []struct {
		view  View
		nodes int
		edges int
	}{
		{ViewTopics, 17, 18},
		{ViewTools, 9, 6},
		{ViewPapers, 8, 5},
	}

	repo, err := memory.NewFixture()
	require.NoError(t, err)
	o := newOrchestrator(repo)

	// One orchestrator on purpose: each load must reset the store.
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			snap, err := o.Load(context.Background(), tt.view)
			require.NoError(t, err)
			assert.Len(t, snap.Nodes, tt.nodes)
			assert.Len(t, snap.Edges, tt.edges)

			for _, e := range snap.Edges {
				assert.True(t, o.Store().HasNode(e.Source), "edge %s has undrawn source", e.ID)
				assert.True(t, o.Store().HasNode(e.Target), "edge %s has undrawn target", e.ID)
			}
		})
	}
}

func TestLoad_TopicsViewRings(t *testing.T) {
	repo, err := memory.NewFixture()
	require.NoError(t, err)
	o := newOrchestrator(repo)

	snap, err := o.Load(context.Background(), ViewTopics)
	require.NoError(t, err)

	cfg := o.engine.Config()
	maxJitter := cfg.Jitter * math.Sqrt2
	for _, n := range snap.Nodes {
		d := n.Position.Dist(cfg.Center)
		switch n.Ref.Kind {
		case entity.KindTool:
			assert.InDelta(t, cfg.Radius*cfg.ToolRing, d, maxJitter+1e-9, n.Ref.String())
		case entity.KindPaper:
			assert.InDelta(t, cfg.Radius*cfg.PaperRing, d, maxJitter+1e-9, n.Ref.String())
		}
	}

	// The single root sits on the inner ring and is drawn first.
	root := snap.Nodes[0]
	assert.Equal(t, entity.TopicRef(1), root.Ref)
	assert.InDelta(t, cfg.Radius, root.Position.Dist(cfg.Center), maxJitter+1e-9)
}

func TestLoad_ThenExpandIsCacheHit(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewFixture()
	require.NoError(t, err)
	src := &stubSource{topics: topics("Unused")}
	o := newOrchestrator(repo, WithSource(src))

	_, err = o.Load(ctx, ViewTools)
	require.NoError(t, err)

	// Deep Learning is drawn next to its tools; expanding it adds its
	// parent and child from storage only.
	delta, err := o.Expand(ctx, entity.TopicRef(3))
	require.NoError(t, err)
	assert.Zero(t, src.calls())

	var refs []entity.Ref
	for _, n := range delta.AddedNodes {
		refs = append(refs, n.Ref)
	}
	assert.ElementsMatch(t, []entity.Ref{entity.TopicRef(2), entity.TopicRef(7)}, refs)
	assert.Len(t, delta.AddedEdges, 2)
}
