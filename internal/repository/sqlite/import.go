package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aigraph/aigraph/internal/repository"
)

var _ repository.Importer = (*DB)(nil)

// Import writes every record of ds keeping its ids. Rows whose id is already
// taken are left as they are, so re-importing never overwrites records
// created since. The topic tree is checked for cycles before commit; the
// whole import runs in one transaction.
func (d *DB) Import(ctx context.Context, ds *repository.Dataset) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	topicStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO topics (id, name, description, source, parent_id, veracity_score, detailed_info)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing topic insert: %w", err)
	}
	defer topicStmt.Close()

	for _, t := range ds.Topics {
		if err := t.ValidateForCreate(); err != nil {
			return fmt.Errorf("topic %d: %w", t.ID, err)
		}
		if _, err := topicStmt.ExecContext(ctx, t.ID, t.Name, t.Description, string(t.Source), nullID(t.ParentID), t.VeracityScore, t.DetailedInfo); err != nil {
			return fmt.Errorf("inserting topic %d: %w", t.ID, err)
		}
	}

	lookup := func(ctx context.Context, id int64) (*int64, error) {
		return parentIn(ctx, tx, id)
	}
	n, err := countTopicsIn(ctx, tx)
	if err != nil {
		return err
	}
	for _, t := range ds.Topics {
		if t.ParentID == nil {
			continue
		}
		if err := repository.CheckParent(ctx, lookup, t.ID, *t.ParentID, n); err != nil {
			return fmt.Errorf("topic %d: %w", t.ID, err)
		}
	}

	paperStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO papers (id, arxiv_id, title, authors, summary, published_date, url, detailed_info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paperStmt.Close()

	for _, p := range ds.Papers {
		if err := p.ValidateForCreate(); err != nil {
			return fmt.Errorf("paper %d: %w", p.ID, err)
		}
		if _, err := paperStmt.ExecContext(ctx, p.ID, nullIfEmpty(p.ExternalID), p.Title, p.Authors, p.Summary, p.PublishedDate, p.URL, p.DetailedInfo); err != nil {
			return fmt.Errorf("inserting paper %d: %w", p.ID, err)
		}
	}

	toolStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO ai_tools (id, name, description, category, url, veracity_score, detailed_info)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing tool insert: %w", err)
	}
	defer toolStmt.Close()

	for _, t := range ds.Tools {
		if err := t.ValidateForCreate(); err != nil {
			return fmt.Errorf("tool %d: %w", t.ID, err)
		}
		if _, err := toolStmt.ExecContext(ctx, t.ID, t.Name, t.Description, t.Category, t.URL, t.VeracityScore, t.DetailedInfo); err != nil {
			return fmt.Errorf("inserting tool %d: %w", t.ID, err)
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO relationships (id, source_type, source_id, target_type, target_id, relationship_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing relationship insert: %w", err)
	}
	defer relStmt.Close()

	for _, r := range ds.Relationships {
		if err := r.ValidateForCreate(); err != nil {
			return fmt.Errorf("relationship %d: %w", r.ID, err)
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = d.now()
		}
		if _, err := relStmt.ExecContext(ctx, r.ID, string(r.Source.Kind), r.Source.ID, string(r.Target.Kind), r.Target.ID, string(r.Kind), created.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting relationship %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// Seed imports ds unless the database already holds topics. With force the
// dataset is imported regardless. Reports whether an import happened.
func (d *DB) Seed(ctx context.Context, ds *repository.Dataset, force bool) (bool, error) {
	if !force {
		empty, err := repository.IsEmpty(ctx, d)
		if err != nil {
			return false, err
		}
		if !empty {
			return false, nil
		}
	}
	if err := d.Import(ctx, ds); err != nil {
		return false, err
	}
	return true, nil
}
