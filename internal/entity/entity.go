package entity

import (
	"errors"
	"fmt"
	"strings"
)

// TopicSource records how a topic came to exist.
type TopicSource string

const (
	SourceSeed      TopicSource = "seed"
	SourceExpansion TopicSource = "expansion"
	SourceGenerated TopicSource = "generated"
)

// Valid reports whether s is a known source.
func (s TopicSource) Valid() bool {
	switch s {
	case SourceSeed, SourceExpansion, SourceGenerated:
		return true
	}
	return false
}

// Validation errors.
var (
	ErrEmptyName      = errors.New("name is required")
	ErrEmptyTitle     = errors.New("title is required")
	ErrScoreRange     = errors.New("veracity score must be within [0, 1]")
	ErrInvalidSource  = errors.New("invalid topic source")
	ErrSelfParent     = errors.New("topic cannot be its own parent")
	ErrInvalidKind    = errors.New("invalid relation kind")
	ErrSelfRelation   = errors.New("source and target cannot be the same")
	ErrInvalidPayload = errors.New("entity payload does not match ref kind")
)

// Entity is implemented by Topic, Paper and Tool.
type Entity interface {
	EntityRef() Ref
	// Label is the display name: a topic or tool name, or a paper title.
	Label() string
	// Describe returns the descriptive text used to build enrichment prompts.
	Describe() string
}

// Topic is a concept node. ParentID links topics into a forest.
type Topic struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Source        TopicSource `json:"source"`
	ParentID      *int64      `json:"parent_id,omitempty"`
	VeracityScore float64     `json:"veracity_score"`
	DetailedInfo  string      `json:"detailed_info,omitempty"`
}

func (t *Topic) EntityRef() Ref { return TopicRef(t.ID) }
func (t *Topic) Label() string { return t.Name }
func (t *Topic) Describe() string { return t.Description }

// ValidateForCreate checks the fields required to insert a topic.
func (t *Topic) ValidateForCreate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.VeracityScore < 0 || t.VeracityScore > 1 {
		return ErrScoreRange
	}
	if t.Source != "" && !t.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, t.Source)
	}
	if t.ParentID != nil && t.ID != 0 && *t.ParentID == t.ID {
		return ErrSelfParent
	}
	return nil
}

// Paper is a factual reference. Papers carry no score.
type Paper struct {
	ID            int64  `json:"id"`
	ExternalID    string `json:"external_id,omitempty"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Summary       string `json:"summary"`
	PublishedDate string `json:"published_date,omitempty"`
	URL           string `json:"url,omitempty"`
	DetailedInfo  string `json:"detailed_info,omitempty"`
}

func (p *Paper) EntityRef() Ref { return PaperRef(p.ID) }
func (p *Paper) Label() string { return p.Title }
func (p *Paper) Describe() string { return p.Summary }

// ValidateForCreate checks the fields required to insert a paper.
func (p *Paper) ValidateForCreate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Tool is a software artifact, framework or library.
type Tool struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	URL           string  `json:"url,omitempty"`
	VeracityScore float64 `json:"veracity_score"`
	DetailedInfo  string  `json:"detailed_info,omitempty"`
}

func (t *Tool) EntityRef() Ref { return ToolRef(t.ID) }
func (t *Tool) Label() string { return t.Name }
func (t *Tool) Describe() string { return t.Description }

// ValidateForCreate checks the fields required to insert a tool.
func (t *Tool) ValidateForCreate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.VeracityScore < 0 || t.VeracityScore > 1 {
		return ErrScoreRange
	}
	return nil
}

// DetailedInfo returns the stored detail text of e, if any.
func DetailedInfo(e Entity) string {
	switch v := e.(type) {
	case *Topic:
		return v.DetailedInfo
	case *Paper:
		return v.DetailedInfo
	case *Tool:
		return v.DetailedInfo
	}
	return ""
}

// FallbackInfo builds the detail text shown when none has been stored.
func FallbackInfo(e Entity) string {
	switch v := e.(type) {
	case *Topic:
		return fmt.Sprintf("%s is a concept in the field of artificial intelligence. It is described as: %s", v.Name, v.Description)
	case *Tool:
		if v.Category != "" {
			return fmt.Sprintf("%s is a %s. It is described as: %s", v.Name, v.Category, v.Description)
		}
		return fmt.Sprintf("%s is a tool used in artificial intelligence. It is described as: %s", v.Name, v.Description)
	case *Paper:
		if v.Authors != "" {
			return fmt.Sprintf("%q by %s. Summary: %s", v.Title, v.Authors, v.Summary)
		}
		return fmt.Sprintf("%q. Summary: %s", v.Title, v.Summary)
	}
	return ""
}

// ClampScore bounds a score to [0, 1].
func ClampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}
