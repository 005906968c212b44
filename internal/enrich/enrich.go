// Package enrich defines the enrichment boundary: sources that propose
// topics, tools and papers related to an entity. Raw provider output is
// normalized here so callers only ever see the canonical candidate types.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aigraph/aigraph/internal/entity"
)

// ErrUnavailable indicates the enrichment call failed or returned data that
// could not be normalized.
var ErrUnavailable = errors.New("enrichment unavailable")

// DefaultScore is assigned to candidates whose plausibility could not be rated.
const DefaultScore = 0.5

// Unscored marks a candidate whose score is still to be rated.
const Unscored = -1.0

// Candidate origins.
const (
	OriginModel   = "model"
	OriginDefault = "default"
	OriginArxiv   = "arxiv"
)

// TopicCandidate is a proposed related topic.
type TopicCandidate struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	Origin      string  `json:"-"`
}

// ToolCandidate is a proposed related tool.
type ToolCandidate struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
	Origin      string  `json:"-"`
}

// PaperCandidate is a proposed related paper.
type PaperCandidate struct {
	ExternalID    string `json:"external_id"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Summary       string `json:"summary"`
	PublishedDate string `json:"published_date"`
	URL           string `json:"url"`
}

// Source proposes topics and tools related to a prompt.
type Source interface {
	RelatedTopics(ctx context.Context, prompt string, count int) ([]TopicCandidate, error)
	RelatedTools(ctx context.Context, prompt string, count int) ([]ToolCandidate, error)
}

// PaperSource proposes papers for a search query.
type PaperSource interface {
	RelatedPapers(ctx context.Context, query string, count int) ([]PaperCandidate, error)
}

// BuildPrompt describes e by its salient fields.
func BuildPrompt(e entity.Entity) string {
	var sb strings.Builder
	switch e.EntityRef().Kind {
	case entity.KindPaper:
		fmt.Fprintf(&sb, "Paper title: %s\n", e.Label())
		if d := strings.TrimSpace(e.Describe()); d != "" {
			fmt.Fprintf(&sb, "Summary: %s\n", d)
		}
	case entity.KindTool:
		fmt.Fprintf(&sb, "Tool: %s\n", e.Label())
		if t, ok := e.(*entity.Tool); ok && t.Category != "" {
			fmt.Fprintf(&sb, "Category: %s\n", t.Category)
		}
		if d := strings.TrimSpace(e.Describe()); d != "" {
			fmt.Fprintf(&sb, "Description: %s\n", d)
		}
	default:
		fmt.Fprintf(&sb, "Topic: %s\n", e.Label())
		if d := strings.TrimSpace(e.Describe()); d != "" {
			fmt.Fprintf(&sb, "Description: %s\n", d)
		}
	}
	return sb.String()
}

// DetailFor writes the detail text stored with a candidate created while
// expanding source.
func DetailFor(source entity.Entity, name, description string) string {
	var sb strings.Builder
	sb.WriteString(name)
	if d := strings.TrimSpace(description); d != "" {
		sb.WriteString(": ")
		sb.WriteString(d)
		if !strings.HasSuffix(d, ".") {
			sb.WriteString(".")
		}
	} else {
		sb.WriteString(".")
	}
	fmt.Fprintf(&sb, "\n\nDiscovered while exploring %s", source.Label())
	if d := strings.TrimSpace(source.Describe()); d != "" {
		fmt.Fprintf(&sb, " (%s)", truncate(d, 160))
	}
	sb.WriteString(".")
	return sb.String()
}

// truncate shortens s to at most maxRunes runes, adding "..." if cut.
func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-3]) + "..."
}

// Filter settings applied to normalized candidates.
type Filter struct {
	// Exclude drops candidates whose name equals this, case-insensitively.
	Exclude string
	// MinScore drops candidates scored below it.
	MinScore float64
	// Limit caps the number of candidates kept; zero keeps all.
	Limit int
}

// CleanTopics trims names, drops empty and duplicate names, resolves
// unscored candidates to DefaultScore, clamps scores and applies f.
func CleanTopics(cands []TopicCandidate, f Filter) []TopicCandidate {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(f.Exclude)): true}
	out := make([]TopicCandidate, 0, len(cands))
	for _, c := range cands {
		c.Name = strings.TrimSpace(c.Name)
		c.Description = strings.TrimSpace(c.Description)
		key := strings.ToLower(c.Name)
		if c.Name == "" || seen[key] {
			continue
		}
		c.Score = resolveScore(c.Score)
		if c.Score < f.MinScore {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// CleanTools is CleanTopics for tools.
func CleanTools(cands []ToolCandidate, f Filter) []ToolCandidate {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(f.Exclude)): true}
	out := make([]ToolCandidate, 0, len(cands))
	for _, c := range cands {
		c.Name = strings.TrimSpace(c.Name)
		c.Description = strings.TrimSpace(c.Description)
		c.Category = strings.TrimSpace(c.Category)
		c.URL = strings.TrimSpace(c.URL)
		key := strings.ToLower(c.Name)
		if c.Name == "" || seen[key] {
			continue
		}
		c.Score = resolveScore(c.Score)
		if c.Score < f.MinScore {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func resolveScore(s float64) float64 {
	if s < 0 {
		return DefaultScore
	}
	return entity.ClampScore(s)
}
