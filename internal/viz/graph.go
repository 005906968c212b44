package viz

import (
	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/graph"
)

// FromSnapshot converts a store snapshot into GraphData, counting the edges
// incident to each node.
func FromSnapshot(s graph.Snapshot) *GraphData {
	counts := make(map[entity.Ref]int, len(s.Nodes))
	edges := make([]Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		counts[e.Source]++
		counts[e.Target]++
		edges = append(edges, Edge{
			ID:               e.ID,
			Source:           e.Source.String(),
			Target:           e.Target.String(),
			RelationshipType: string(e.Kind),
		})
	}

	nodes := make([]Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes = append(nodes, newNode(n, counts[n.Ref]))
	}

	return &GraphData{Nodes: nodes, Edges: edges}
}

// newNode creates a visualization node from a placed entity.
func newNode(n graph.Node, connectionCount int) Node {
	out := Node{
		ID:              n.Ref.String(),
		Type:            string(n.Ref.Kind),
		Label:           n.Ref.String(),
		ConnectionCount: connectionCount,
		X:               n.Position.X,
		Y:               n.Position.Y,
	}

	switch p := n.Payload.(type) {
	case *entity.Topic:
		out.Label = p.Name
		out.Description = p.Description
		out.Score = score(p.VeracityScore)
	case *entity.Tool:
		out.Label = p.Name
		out.Description = p.Description
		out.Category = p.Category
		out.URL = p.URL
		out.Score = score(p.VeracityScore)
	case *entity.Paper:
		out.Label = p.Title
		out.Description = p.Summary
		out.Authors = p.Authors
		out.Published = p.PublishedDate
		out.URL = p.URL
	}
	return out
}

func score(v float64) *float64 {
	return &v
}
