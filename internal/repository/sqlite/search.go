package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository"
)

// likePattern escapes LIKE wildcards in q and wraps it for substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// Search matches query with LIKE over topic name and description, paper
// title, summary and authors, and tool name, description and category.
// SQLite LIKE is case-insensitive for ASCII.
func (d *DB) Search(ctx context.Context, query string, limit int) ([]repository.SearchResult, error) {
	q, ok := repository.NormalizeQuery(query)
	if !ok {
		return nil, nil
	}
	if limit <= 0 {
		limit = repository.DefaultSearchLimit
	}
	pat := likePattern(q)

	var out []repository.SearchResult

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, description, veracity_score FROM topics
		WHERE name LIKE ?1 ESCAPE '\' OR description LIKE ?1 ESCAPE '\'
		ORDER BY id LIMIT ?2
	`, pat, limit)
	if err != nil {
		return nil, fmt.Errorf("searching topics: %w", err)
	}
	for rows.Next() {
		var (
			id          int64
			title, desc string
			score       float64
		)
		if err := rows.Scan(&id, &title, &desc, &score); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning topic hit: %w", err)
		}
		out = append(out, repository.SearchResult{Ref: entity.TopicRef(id), Kind: entity.KindTopic, Title: title, Description: desc, VeracityScore: &score})
	}
	rows.Close()

	rows, err = d.db.QueryContext(ctx, `
		SELECT id, title, summary FROM papers
		WHERE title LIKE ?1 ESCAPE '\' OR summary LIKE ?1 ESCAPE '\' OR authors LIKE ?1 ESCAPE '\'
		ORDER BY id LIMIT ?2
	`, pat, limit)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	for rows.Next() {
		var (
			id          int64
			title, desc string
		)
		if err := rows.Scan(&id, &title, &desc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning paper hit: %w", err)
		}
		out = append(out, repository.SearchResult{Ref: entity.PaperRef(id), Kind: entity.KindPaper, Title: title, Description: desc})
	}
	rows.Close()

	rows, err = d.db.QueryContext(ctx, `
		SELECT id, name, description, veracity_score FROM ai_tools
		WHERE name LIKE ?1 ESCAPE '\' OR description LIKE ?1 ESCAPE '\' OR category LIKE ?1 ESCAPE '\'
		ORDER BY id LIMIT ?2
	`, pat, limit)
	if err != nil {
		return nil, fmt.Errorf("searching tools: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id          int64
			title, desc string
			score       float64
		)
		if err := rows.Scan(&id, &title, &desc, &score); err != nil {
			return nil, fmt.Errorf("scanning tool hit: %w", err)
		}
		out = append(out, repository.SearchResult{Ref: entity.ToolRef(id), Kind: entity.KindTool, Title: title, Description: desc, VeracityScore: &score})
	}
	return out, rows.Err()
}
