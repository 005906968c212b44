// Package viz renders graph snapshots as self-contained Cytoscape.js pages.
package viz

// Node types, matching entity kinds.
const (
	NodeTypeTopic = "topic"
	NodeTypePaper = "paper"
	NodeTypeTool  = "tool"
)

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a drawn entity.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// Display
	Label string `json:"label"`

	// Tooltip fields; which are set depends on Type.
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Authors     string   `json:"authors,omitempty"`
	Published   string   `json:"published,omitempty"`
	URL         string   `json:"url,omitempty"`
	Score       *float64 `json:"score,omitempty"`

	// Sizing
	ConnectionCount int `json:"connectionCount"`

	// Canvas position used by the preset layout.
	X float64 `json:"-"`
	Y float64 `json:"-"`
}

// Edge is a drawn relationship.
type Edge struct {
	ID               string `json:"id"`
	Source           string `json:"source"`
	Target           string `json:"target"`
	RelationshipType string `json:"relationshipType"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
