package viz

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/graph"
)

func testSnapshot() graph.Snapshot {
	ai := &entity.Topic{ID: 1, Name: "AI", Description: "Artificial intelligence", VeracityScore: 1}
	torch := &entity.Tool{ID: 2, Name: "PyTorch", Category: "Machine Learning Framework", VeracityScore: 0.95}
	paper := &entity.Paper{ID: 3, Title: "Attention Is All You Need", Authors: "Vaswani et al.", PublishedDate: "2017-06-12"}

	return graph.Snapshot{
		Nodes: []graph.Node{
			{Ref: ai.EntityRef(), Position: graph.Position{X: 300, Y: 0}, Payload: ai},
			{Ref: torch.EntityRef(), Position: graph.Position{X: -450, Y: 10}, Payload: torch},
			{Ref: paper.EntityRef(), Position: graph.Position{X: 0, Y: 540}, Payload: paper},
		},
		Edges: []graph.Edge{
			graph.NewEdge(ai.EntityRef(), torch.EntityRef(), entity.RelImplements),
			graph.NewEdge(paper.EntityRef(), ai.EntityRef(), entity.RelExtracted),
		},
	}
}

func TestFromSnapshot(t *testing.T) {
	g := FromSnapshot(testSnapshot())

	if len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Fatalf("got %d nodes, %d edges; want 3, 2", len(g.Nodes), len(g.Edges))
	}

	topic := g.Nodes[0]
	if topic.ID != "topic-1" || topic.Type != NodeTypeTopic || topic.Label != "AI" {
		t.Errorf("topic node = %+v", topic)
	}
	if topic.ConnectionCount != 2 {
		t.Errorf("topic ConnectionCount = %d, want 2", topic.ConnectionCount)
	}
	if topic.Score == nil || *topic.Score != 1 {
		t.Errorf("topic Score = %v, want 1", topic.Score)
	}

	tool := g.Nodes[1]
	if tool.Type != NodeTypeTool || tool.Category != "Machine Learning Framework" || tool.ConnectionCount != 1 {
		t.Errorf("tool node = %+v", tool)
	}

	paper := g.Nodes[2]
	if paper.Type != NodeTypePaper || paper.Label != "Attention Is All You Need" || paper.Score != nil {
		t.Errorf("paper node = %+v", paper)
	}
	if paper.X != 0 || paper.Y != 540 {
		t.Errorf("paper position = (%v, %v), want (0, 540)", paper.X, paper.Y)
	}

	e := g.Edges[1]
	if e.Source != "paper-3" || e.Target != "topic-1" || e.RelationshipType != "extracted" {
		t.Errorf("edge = %+v", e)
	}
	if e.ID != graph.EdgeID(entity.TopicRef(1), entity.PaperRef(3), entity.RelExtracted) {
		t.Errorf("edge ID = %q, want the order-independent identity", e.ID)
	}
}

func TestToCytoscapeJSON_Positions(t *testing.T) {
	out, err := FromSnapshot(testSnapshot()).ToCytoscapeJSON()
	if err != nil {
		t.Fatalf("ToCytoscapeJSON() error = %v", err)
	}

	var elements CytoscapeElements
	if err := json.Unmarshal([]byte(out), &elements); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got := elements.Nodes[1].Position; got.X != -450 || got.Y != 10 {
		t.Errorf("tool position = %+v, want (-450, 10)", got)
	}
	if strings.Contains(out, `"X"`) {
		t.Error("canvas coordinates leaked into node data")
	}
}

func TestGenerateHTML(t *testing.T) {
	g := FromSnapshot(testSnapshot())

	tests := []struct {
		layout  string
		wantCy  string
		wantErr bool
	}{
		{"", "preset", false},
		{LayoutPreset, "preset", false},
		{LayoutForce, "cose", false},
		{LayoutCircle, "circle", false},
		{LayoutGrid, "grid", false},
		{"spiral", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			page, err := GenerateHTML(g, HTMLOptions{Layout: tt.layout})
			if tt.wantErr {
				if err == nil {
					t.Error("GenerateHTML() should reject unknown layouts")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateHTML() error = %v", err)
			}
			if !strings.Contains(page, `var layoutName = "`+tt.wantCy+`"`) {
				t.Errorf("page does not select layout %q", tt.wantCy)
			}
			if !strings.Contains(page, "PyTorch") {
				t.Error("page does not embed node data")
			}
			if !strings.Contains(page, "<title>AI Knowledge Graph</title>") {
				t.Error("page is missing the default title")
			}
		})
	}
}

func TestGenerateHTML_EmptyAndNil(t *testing.T) {
	page, err := GenerateHTML(&GraphData{}, DefaultOptions())
	if err != nil {
		t.Fatalf("GenerateHTML(empty) error = %v", err)
	}
	if !strings.Contains(page, "aig seed") {
		t.Error("empty page should point at aig seed")
	}

	if _, err := GenerateHTML(nil, DefaultOptions()); err == nil {
		t.Error("GenerateHTML(nil) should fail")
	}
}
