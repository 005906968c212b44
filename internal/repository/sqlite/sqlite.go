// Package sqlite implements the repository on an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB

	// mu serializes writes that read before they write (parent checks).
	mu  sync.Mutex
	now func() time.Time
}

var _ repository.Repository = (*DB)(nil)

const (
	selectTopicFields = `id, name, description, source, parent_id, veracity_score, detailed_info`
	selectPaperFields = `id, arxiv_id, title, authors, summary, published_date, url, detailed_info`
	selectToolFields  = `id, name, description, category, url, veracity_score, detailed_info`
	selectRelFields   = `id, source_type, source_id, target_type, target_id, relationship_type, created_at`
)

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// SetClock overrides the time source for relationship timestamps.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS topics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'seed',
			parent_id INTEGER REFERENCES topics(id),
			veracity_score REAL NOT NULL DEFAULT 0,
			detailed_info TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			arxiv_id TEXT UNIQUE,
			title TEXT NOT NULL,
			authors TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			published_date TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			detailed_info TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS ai_tools (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			veracity_score REAL NOT NULL DEFAULT 0,
			detailed_info TEXT NOT NULL DEFAULT ''
		);

		-- Rows are not unique per pair; duplicates are collapsed when drawn.
		CREATE TABLE IF NOT EXISTS relationships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_type TEXT NOT NULL,
			source_id INTEGER NOT NULL,
			target_type TEXT NOT NULL,
			target_id INTEGER NOT NULL,
			relationship_type TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rel_source ON relationships(source_type, source_id);
		CREATE INDEX IF NOT EXISTS idx_rel_target ON relationships(target_type, target_id);
		CREATE INDEX IF NOT EXISTS idx_topics_parent ON topics(parent_id);
	`

	_, err := db.Exec(schema)
	return err
}

// tableFor returns the table holding entities of kind k.
func tableFor(k entity.Kind) (string, error) {
	switch k {
	case entity.KindTopic:
		return "topics", nil
	case entity.KindPaper:
		return "papers", nil
	case entity.KindTool:
		return "ai_tools", nil
	}
	return "", fmt.Errorf("%w: %q", entity.ErrUnknownKind, k)
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTopic(s scanner) (entity.Topic, error) {
	var (
		t      entity.Topic
		source string
		parent sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.Name, &t.Description, &source, &parent, &t.VeracityScore, &t.DetailedInfo); err != nil {
		return t, err
	}
	t.Source = entity.TopicSource(source)
	if parent.Valid {
		p := parent.Int64
		t.ParentID = &p
	}
	return t, nil
}

func scanPaper(s scanner) (entity.Paper, error) {
	var (
		p     entity.Paper
		arxiv sql.NullString
	)
	if err := s.Scan(&p.ID, &arxiv, &p.Title, &p.Authors, &p.Summary, &p.PublishedDate, &p.URL, &p.DetailedInfo); err != nil {
		return p, err
	}
	p.ExternalID = arxiv.String
	return p, nil
}

func scanTool(s scanner) (entity.Tool, error) {
	var t entity.Tool
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.URL, &t.VeracityScore, &t.DetailedInfo)
	return t, err
}

func scanRelationship(s scanner) (entity.Relationship, error) {
	var (
		r                      entity.Relationship
		srcKind, dstKind, kind string
		created                string
	)
	if err := s.Scan(&r.ID, &srcKind, &r.Source.ID, &dstKind, &r.Target.ID, &kind, &created); err != nil {
		return r, err
	}
	r.Source.Kind = entity.Kind(srcKind)
	r.Target.Kind = entity.Kind(dstKind)
	r.Kind = entity.RelationKind(kind)
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return r, fmt.Errorf("parsing created_at of relationship %d: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

// notFound converts sql.ErrNoRows to repository.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return fmt.Errorf("querying %s: %w", what, err)
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Get resolves ref.
func (d *DB) Get(ctx context.Context, ref entity.Ref) (entity.Entity, error) {
	switch ref.Kind {
	case entity.KindTopic:
		t, err := scanTopic(d.db.QueryRowContext(ctx, `SELECT `+selectTopicFields+` FROM topics WHERE id = ?`, ref.ID))
		if err != nil {
			return nil, notFound(err, ref.String())
		}
		return &t, nil
	case entity.KindPaper:
		p, err := scanPaper(d.db.QueryRowContext(ctx, `SELECT `+selectPaperFields+` FROM papers WHERE id = ?`, ref.ID))
		if err != nil {
			return nil, notFound(err, ref.String())
		}
		return &p, nil
	case entity.KindTool:
		t, err := scanTool(d.db.QueryRowContext(ctx, `SELECT `+selectToolFields+` FROM ai_tools WHERE id = ?`, ref.ID))
		if err != nil {
			return nil, notFound(err, ref.String())
		}
		return &t, nil
	}
	return nil, fmt.Errorf("%s: %w", ref, repository.ErrNotFound)
}

// Relationships returns rows touching ref in either direction, by id.
func (d *DB) Relationships(ctx context.Context, ref entity.Ref) ([]entity.Relationship, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectRelFields+` FROM relationships
		WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?)
		ORDER BY id
	`, string(ref.Kind), ref.ID, string(ref.Kind), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("querying relationships of %s: %w", ref, err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

func scanRelationships(rows *sql.Rows) ([]entity.Relationship, error) {
	var rels []entity.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// parentOf is the ParentLookup over the topics table.
func (d *DB) parentOf(ctx context.Context, id int64) (*int64, error) {
	return parentIn(ctx, d.db, id)
}

func parentIn(ctx context.Context, q querier, id int64) (*int64, error) {
	var parent sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT parent_id FROM topics WHERE id = ?`, id).Scan(&parent)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("topic %d", id))
	}
	if !parent.Valid {
		return nil, nil
	}
	p := parent.Int64
	return &p, nil
}

func (d *DB) countTopics(ctx context.Context) (int, error) {
	return countTopicsIn(ctx, d.db)
}

func countTopicsIn(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting topics: %w", err)
	}
	return n, nil
}

// InsertTopic stores t with a new id.
func (d *DB) InsertTopic(ctx context.Context, t *entity.Topic) (int64, error) {
	if err := t.ValidateForCreate(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t.ParentID != nil {
		n, err := d.countTopics(ctx)
		if err != nil {
			return 0, err
		}
		if err := repository.CheckParent(ctx, d.parentOf, 0, *t.ParentID, n); err != nil {
			return 0, err
		}
	}

	source := t.Source
	if source == "" {
		source = entity.SourceSeed
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO topics (name, description, source, parent_id, veracity_score, detailed_info)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Name, t.Description, string(source), nullID(t.ParentID), t.VeracityScore, t.DetailedInfo)
	if err != nil {
		return 0, fmt.Errorf("inserting topic: %w", err)
	}
	return res.LastInsertId()
}

// InsertTool stores t with a new id.
func (d *DB) InsertTool(ctx context.Context, t *entity.Tool) (int64, error) {
	if err := t.ValidateForCreate(); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO ai_tools (name, description, category, url, veracity_score, detailed_info)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Name, t.Description, t.Category, t.URL, t.VeracityScore, t.DetailedInfo)
	if err != nil {
		return 0, fmt.Errorf("inserting tool: %w", err)
	}
	return res.LastInsertId()
}

// InsertPaper stores p with a new id. External ids are unique.
func (d *DB) InsertPaper(ctx context.Context, p *entity.Paper) (int64, error) {
	if err := p.ValidateForCreate(); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO papers (arxiv_id, title, authors, summary, published_date, url, detailed_info)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nullIfEmpty(p.ExternalID), p.Title, p.Authors, p.Summary, p.PublishedDate, p.URL, p.DetailedInfo)
	if err != nil {
		return 0, fmt.Errorf("inserting paper: %w", err)
	}
	return res.LastInsertId()
}

// InsertRelationship stores a new row. Both endpoints must exist.
func (d *DB) InsertRelationship(ctx context.Context, source, target entity.Ref, kind entity.RelationKind) (int64, error) {
	rel := entity.Relationship{Source: source, Target: target, Kind: kind}
	if err := rel.ValidateForCreate(); err != nil {
		return 0, err
	}
	for _, ref := range []entity.Ref{source, target} {
		if err := d.mustExist(ctx, ref); err != nil {
			return 0, err
		}
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO relationships (source_type, source_id, target_type, target_id, relationship_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(source.Kind), source.ID, string(target.Kind), target.ID, string(kind), d.now().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting relationship: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) mustExist(ctx context.Context, ref entity.Ref) error {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	var one int
	err = d.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, ref.ID).Scan(&one)
	if err != nil {
		return notFound(err, ref.String())
	}
	return nil
}

// FindTopicByName returns the lowest-id topic named name.
func (d *DB) FindTopicByName(ctx context.Context, name string) (*entity.Topic, error) {
	t, err := scanTopic(d.db.QueryRowContext(ctx,
		`SELECT `+selectTopicFields+` FROM topics WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1`,
		strings.TrimSpace(name)))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("topic %q", name))
	}
	return &t, nil
}

// FindToolByName returns the lowest-id tool named name.
func (d *DB) FindToolByName(ctx context.Context, name string) (*entity.Tool, error) {
	t, err := scanTool(d.db.QueryRowContext(ctx,
		`SELECT `+selectToolFields+` FROM ai_tools WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1`,
		strings.TrimSpace(name)))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("tool %q", name))
	}
	return &t, nil
}

// FindPaperByExternalID returns the paper with the given arXiv id.
func (d *DB) FindPaperByExternalID(ctx context.Context, externalID string) (*entity.Paper, error) {
	p, err := scanPaper(d.db.QueryRowContext(ctx,
		`SELECT `+selectPaperFields+` FROM papers WHERE arxiv_id = ?`, externalID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("paper %q", externalID))
	}
	return &p, nil
}

// SetDetailedInfo replaces the detail text of ref.
func (d *DB) SetDetailedInfo(ctx context.Context, ref entity.Ref, info string) error {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `UPDATE `+table+` SET detailed_info = ? WHERE id = ?`, info, ref.ID)
	if err != nil {
		return fmt.Errorf("updating detailed info of %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", ref, repository.ErrNotFound)
	}
	return nil
}

// SetTopicParent re-parents a topic. A nil parent makes it a root.
func (d *DB) SetTopicParent(ctx context.Context, topicID int64, parentID *int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.parentOf(ctx, topicID); err != nil {
		return err
	}
	if parentID != nil {
		n, err := d.countTopics(ctx)
		if err != nil {
			return err
		}
		if err := repository.CheckParent(ctx, d.parentOf, topicID, *parentID, n); err != nil {
			return err
		}
	}
	if _, err := d.db.ExecContext(ctx, `UPDATE topics SET parent_id = ? WHERE id = ?`, nullID(parentID), topicID); err != nil {
		return fmt.Errorf("updating parent of topic %d: %w", topicID, err)
	}
	return nil
}

// ListTopics returns all topics ordered by id.
func (d *DB) ListTopics(ctx context.Context) ([]entity.Topic, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectTopicFields+` FROM topics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var out []entity.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListPapers returns all papers ordered by id.
func (d *DB) ListPapers(ctx context.Context) ([]entity.Paper, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectPaperFields+` FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var out []entity.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListTools returns all tools ordered by id.
func (d *DB) ListTools(ctx context.Context) ([]entity.Tool, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectToolFields+` FROM ai_tools ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying tools: %w", err)
	}
	defer rows.Close()

	var out []entity.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tool: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListRelationships returns all rows ordered by id.
func (d *DB) ListRelationships(ctx context.Context) ([]entity.Relationship, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectRelFields+` FROM relationships ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}
