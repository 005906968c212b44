// Package repository defines durable access to topics, papers, tools and
// relationships. Two interchangeable implementations live in the memory and
// sqlite subpackages.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aigraph/aigraph/internal/entity"
)

// Errors returned by repositories.
var (
	// ErrNotFound indicates no record exists for the requested ref or key.
	ErrNotFound = errors.New("not found")

	// ErrParentCycle indicates a parent assignment would make the topic tree cyclic.
	ErrParentCycle = errors.New("topic parent would create a cycle")
)

// Search limits.
const (
	DefaultSearchLimit = 10
	MinQueryLength     = 2
)

// Repository is the persistence boundary of the graph core.
type Repository interface {
	// Get resolves ref to its Topic, Paper or Tool. Returns ErrNotFound if absent.
	Get(ctx context.Context, ref entity.Ref) (entity.Entity, error)
	// Relationships returns every stored row with ref as source or target.
	Relationships(ctx context.Context, ref entity.Ref) ([]entity.Relationship, error)

	InsertTopic(ctx context.Context, t *entity.Topic) (int64, error)
	InsertTool(ctx context.Context, t *entity.Tool) (int64, error)
	InsertPaper(ctx context.Context, p *entity.Paper) (int64, error)
	InsertRelationship(ctx context.Context, source, target entity.Ref, kind entity.RelationKind) (int64, error)

	// FindTopicByName and FindToolByName match case-insensitively.
	FindTopicByName(ctx context.Context, name string) (*entity.Topic, error)
	FindToolByName(ctx context.Context, name string) (*entity.Tool, error)
	FindPaperByExternalID(ctx context.Context, externalID string) (*entity.Paper, error)

	SetDetailedInfo(ctx context.Context, ref entity.Ref, info string) error
	SetTopicParent(ctx context.Context, topicID int64, parentID *int64) error

	ListTopics(ctx context.Context) ([]entity.Topic, error)
	ListPapers(ctx context.Context) ([]entity.Paper, error)
	ListTools(ctx context.Context) ([]entity.Tool, error)
	ListRelationships(ctx context.Context) ([]entity.Relationship, error)

	// Search matches query as a case-insensitive substring, up to limit per kind.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	Close() error
}

// SearchResult is one hit of Repository.Search.
type SearchResult struct {
	Ref           entity.Ref  `json:"ref"`
	Kind          entity.Kind `json:"kind"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	VeracityScore *float64    `json:"veracity_score,omitempty"`
}

// NormalizeQuery trims q and reports whether it is long enough to search.
func NormalizeQuery(q string) (string, bool) {
	q = strings.TrimSpace(q)
	return q, len([]rune(q)) >= MinQueryLength
}

// ParentLookup returns the parent id of a topic, nil for a root.
type ParentLookup func(ctx context.Context, topicID int64) (*int64, error)

// CheckParent verifies that making parentID the parent of topicID keeps the
// topic tree acyclic. It walks ancestors of parentID; reaching topicID, or
// walking more than maxDepth steps, is a cycle. topicID may be 0 for a topic
// not yet inserted.
func CheckParent(ctx context.Context, lookup ParentLookup, topicID, parentID int64, maxDepth int) error {
	if topicID != 0 && topicID == parentID {
		return fmt.Errorf("%w: topic %d", ErrParentCycle, topicID)
	}

	cur := parentID
	for steps := 0; ; steps++ {
		if steps > maxDepth {
			return fmt.Errorf("%w: ancestor chain of topic %d exceeds %d", ErrParentCycle, parentID, maxDepth)
		}
		next, err := lookup(ctx, cur)
		if err != nil {
			if errors.Is(err, ErrNotFound) && cur == parentID {
				return fmt.Errorf("parent topic %d: %w", parentID, ErrNotFound)
			}
			return err
		}
		if next == nil {
			return nil
		}
		if topicID != 0 && *next == topicID {
			return fmt.Errorf("%w: topic %d is an ancestor of %d", ErrParentCycle, topicID, parentID)
		}
		cur = *next
	}
}

// DetailInfo returns the stored detail text for ref. When none is stored a
// description is generated and saved, so later reads return the same text.
func DetailInfo(ctx context.Context, repo Repository, ref entity.Ref) (string, error) {
	e, err := repo.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	if info := entity.DetailedInfo(e); info != "" {
		return info, nil
	}
	info := entity.FallbackInfo(e)
	if err := repo.SetDetailedInfo(ctx, ref, info); err != nil {
		return "", fmt.Errorf("saving detail info of %s: %w", ref, err)
	}
	return info, nil
}

// IsEmpty reports whether the repository holds no topics.
func IsEmpty(ctx context.Context, repo Repository) (bool, error) {
	topics, err := repo.ListTopics(ctx)
	if err != nil {
		return false, err
	}
	return len(topics) == 0, nil
}
