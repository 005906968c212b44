// Package memory implements the repository in process memory, seeded from
// an embedded fixture or a JSONL dump.
package memory

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository"
)

//go:embed fixture.json
var fixtureJSON []byte

// Fixture returns a fresh copy of the embedded seed dataset.
func Fixture() (*repository.Dataset, error) {
	var ds repository.Dataset
	if err := json.NewDecoder(bytes.NewReader(fixtureJSON)).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return &ds, nil
}

// Repo is an in-memory repository. It is safe for concurrent use.
type Repo struct {
	mu      sync.RWMutex
	topics  map[int64]entity.Topic
	papers  map[int64]entity.Paper
	tools   map[int64]entity.Tool
	rels    map[int64]entity.Relationship
	nextID  map[entity.Kind]int64
	nextRel int64
	now     func() time.Time
}

var _ repository.Repository = (*Repo)(nil)

// New returns an empty repository.
func New() *Repo {
	return &Repo{
		topics: make(map[int64]entity.Topic),
		papers: make(map[int64]entity.Paper),
		tools:  make(map[int64]entity.Tool),
		rels:   make(map[int64]entity.Relationship),
		nextID: map[entity.Kind]int64{
			entity.KindTopic: 1,
			entity.KindPaper: 1,
			entity.KindTool:  1,
		},
		nextRel: 1,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewFixture returns a repository loaded with the embedded seed dataset.
func NewFixture() (*Repo, error) {
	ds, err := Fixture()
	if err != nil {
		return nil, err
	}
	r := New()
	if err := r.Import(context.Background(), ds); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadJSONL returns a repository loaded from a dump file.
func LoadJSONL(path string) (*Repo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	ds, err := repository.ReadJSONL(f)
	if err != nil {
		return nil, err
	}
	r := New()
	if err := r.Import(context.Background(), ds); err != nil {
		return nil, err
	}
	return r, nil
}

// SetClock overrides the time source for relationship timestamps.
func (r *Repo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Import adds every record of ds keeping its ids. Records whose id is
// already taken are kept as they are.
func (r *Repo) Import(_ context.Context, ds *repository.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range ds.Topics {
		if err := t.ValidateForCreate(); err != nil {
			return fmt.Errorf("topic %d: %w", t.ID, err)
		}
		if _, ok := r.topics[t.ID]; !ok {
			r.topics[t.ID] = t
		}
		r.bump(entity.KindTopic, t.ID)
	}
	for _, t := range ds.Topics {
		if t.ParentID == nil {
			continue
		}
		if err := repository.CheckParent(context.Background(), r.parentOf, t.ID, *t.ParentID, len(r.topics)); err != nil {
			return fmt.Errorf("topic %d: %w", t.ID, err)
		}
	}
	for _, p := range ds.Papers {
		if err := p.ValidateForCreate(); err != nil {
			return fmt.Errorf("paper %d: %w", p.ID, err)
		}
		if _, ok := r.papers[p.ID]; !ok {
			r.papers[p.ID] = p
		}
		r.bump(entity.KindPaper, p.ID)
	}
	for _, t := range ds.Tools {
		if err := t.ValidateForCreate(); err != nil {
			return fmt.Errorf("tool %d: %w", t.ID, err)
		}
		if _, ok := r.tools[t.ID]; !ok {
			r.tools[t.ID] = t
		}
		r.bump(entity.KindTool, t.ID)
	}
	for _, rel := range ds.Relationships {
		if err := rel.ValidateForCreate(); err != nil {
			return fmt.Errorf("relationship %d: %w", rel.ID, err)
		}
		if _, ok := r.rels[rel.ID]; !ok {
			r.rels[rel.ID] = rel
		}
		if rel.ID >= r.nextRel {
			r.nextRel = rel.ID + 1
		}
	}
	return nil
}

func (r *Repo) bump(k entity.Kind, id int64) {
	if id >= r.nextID[k] {
		r.nextID[k] = id + 1
	}
}

// parentOf is the ParentLookup over r.topics. Callers hold r.mu.
func (r *Repo) parentOf(_ context.Context, id int64) (*int64, error) {
	t, ok := r.topics[id]
	if !ok {
		return nil, fmt.Errorf("topic %d: %w", id, repository.ErrNotFound)
	}
	return t.ParentID, nil
}

func (r *Repo) exists(ref entity.Ref) bool {
	switch ref.Kind {
	case entity.KindTopic:
		_, ok := r.topics[ref.ID]
		return ok
	case entity.KindPaper:
		_, ok := r.papers[ref.ID]
		return ok
	case entity.KindTool:
		_, ok := r.tools[ref.ID]
		return ok
	}
	return false
}

// Get resolves ref.
func (r *Repo) Get(_ context.Context, ref entity.Ref) (entity.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch ref.Kind {
	case entity.KindTopic:
		if t, ok := r.topics[ref.ID]; ok {
			return &t, nil
		}
	case entity.KindPaper:
		if p, ok := r.papers[ref.ID]; ok {
			return &p, nil
		}
	case entity.KindTool:
		if t, ok := r.tools[ref.ID]; ok {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, repository.ErrNotFound)
}

// Relationships returns rows touching ref in either direction, by id.
func (r *Repo) Relationships(_ context.Context, ref entity.Ref) ([]entity.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Relationship
	for _, rel := range r.rels {
		if rel.Source == ref || rel.Target == ref {
			out = append(out, rel)
		}
	}
	sortRels(out)
	return out, nil
}

// InsertTopic stores t with a new id.
func (r *Repo) InsertTopic(ctx context.Context, t *entity.Topic) (int64, error) {
	if err := t.ValidateForCreate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ParentID != nil {
		if err := repository.CheckParent(ctx, r.parentOf, 0, *t.ParentID, len(r.topics)); err != nil {
			return 0, err
		}
	}
	rec := *t
	rec.ID = r.nextID[entity.KindTopic]
	r.nextID[entity.KindTopic]++
	r.topics[rec.ID] = rec
	return rec.ID, nil
}

// InsertTool stores t with a new id.
func (r *Repo) InsertTool(_ context.Context, t *entity.Tool) (int64, error) {
	if err := t.ValidateForCreate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := *t
	rec.ID = r.nextID[entity.KindTool]
	r.nextID[entity.KindTool]++
	r.tools[rec.ID] = rec
	return rec.ID, nil
}

// InsertPaper stores p with a new id.
func (r *Repo) InsertPaper(_ context.Context, p *entity.Paper) (int64, error) {
	if err := p.ValidateForCreate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := *p
	rec.ID = r.nextID[entity.KindPaper]
	r.nextID[entity.KindPaper]++
	r.papers[rec.ID] = rec
	return rec.ID, nil
}

// InsertRelationship stores a new row. Both endpoints must exist.
func (r *Repo) InsertRelationship(_ context.Context, source, target entity.Ref, kind entity.RelationKind) (int64, error) {
	rel := entity.Relationship{Source: source, Target: target, Kind: kind}
	if err := rel.ValidateForCreate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range []entity.Ref{source, target} {
		if !r.exists(ref) {
			return 0, fmt.Errorf("%s: %w", ref, repository.ErrNotFound)
		}
	}
	rel.ID = r.nextRel
	r.nextRel++
	rel.CreatedAt = r.now()
	r.rels[rel.ID] = rel
	return rel.ID, nil
}

// FindTopicByName returns the lowest-id topic named name.
func (r *Repo) FindTopicByName(_ context.Context, name string) (*entity.Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entity.Topic
	for _, t := range r.topics {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) && (best == nil || t.ID < best.ID) {
			best = &t
		}
	}
	if best == nil {
		return nil, fmt.Errorf("topic %q: %w", name, repository.ErrNotFound)
	}
	return best, nil
}

// FindToolByName returns the lowest-id tool named name.
func (r *Repo) FindToolByName(_ context.Context, name string) (*entity.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entity.Tool
	for _, t := range r.tools {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) && (best == nil || t.ID < best.ID) {
			best = &t
		}
	}
	if best == nil {
		return nil, fmt.Errorf("tool %q: %w", name, repository.ErrNotFound)
	}
	return best, nil
}

// FindPaperByExternalID returns the paper with the given external id.
func (r *Repo) FindPaperByExternalID(_ context.Context, externalID string) (*entity.Paper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if externalID != "" {
		for _, p := range r.papers {
			if p.ExternalID == externalID {
				return &p, nil
			}
		}
	}
	return nil, fmt.Errorf("paper %q: %w", externalID, repository.ErrNotFound)
}

// SetDetailedInfo replaces the detail text of ref.
func (r *Repo) SetDetailedInfo(_ context.Context, ref entity.Ref, info string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ref.Kind {
	case entity.KindTopic:
		if t, ok := r.topics[ref.ID]; ok {
			t.DetailedInfo = info
			r.topics[ref.ID] = t
			return nil
		}
	case entity.KindPaper:
		if p, ok := r.papers[ref.ID]; ok {
			p.DetailedInfo = info
			r.papers[ref.ID] = p
			return nil
		}
	case entity.KindTool:
		if t, ok := r.tools[ref.ID]; ok {
			t.DetailedInfo = info
			r.tools[ref.ID] = t
			return nil
		}
	}
	return fmt.Errorf("%s: %w", ref, repository.ErrNotFound)
}

// SetTopicParent re-parents a topic. A nil parent makes it a root.
func (r *Repo) SetTopicParent(ctx context.Context, topicID int64, parentID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[topicID]
	if !ok {
		return fmt.Errorf("topic %d: %w", topicID, repository.ErrNotFound)
	}
	if parentID != nil {
		if err := repository.CheckParent(ctx, r.parentOf, topicID, *parentID, len(r.topics)); err != nil {
			return err
		}
	}
	t.ParentID = parentID
	r.topics[topicID] = t
	return nil
}

// ListTopics returns all topics ordered by id.
func (r *Repo) ListTopics(_ context.Context) ([]entity.Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Topic, 0, len(r.topics))
	for _, t := range r.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListPapers returns all papers ordered by id.
func (r *Repo) ListPapers(_ context.Context) ([]entity.Paper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Paper, 0, len(r.papers))
	for _, p := range r.papers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTools returns all tools ordered by id.
func (r *Repo) ListTools(_ context.Context) ([]entity.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRelationships returns all rows ordered by id.
func (r *Repo) ListRelationships(_ context.Context) ([]entity.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Relationship, 0, len(r.rels))
	for _, rel := range r.rels {
		out = append(out, rel)
	}
	sortRels(out)
	return out, nil
}

// Search does a case-insensitive substring match per kind.
func (r *Repo) Search(ctx context.Context, query string, limit int) ([]repository.SearchResult, error) {
	q, ok := repository.NormalizeQuery(query)
	if !ok {
		return nil, nil
	}
	if limit <= 0 {
		limit = repository.DefaultSearchLimit
	}
	q = strings.ToLower(q)
	match := func(fields ...string) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	}

	topics, _ := r.ListTopics(ctx)
	papers, _ := r.ListPapers(ctx)
	tools, _ := r.ListTools(ctx)

	var out []repository.SearchResult
	n := 0
	for _, t := range topics {
		if n < limit && match(t.Name, t.Description) {
			score := t.VeracityScore
			out = append(out, repository.SearchResult{Ref: t.EntityRef(), Kind: entity.KindTopic, Title: t.Name, Description: t.Description, VeracityScore: &score})
			n++
		}
	}
	n = 0
	for _, p := range papers {
		if n < limit && match(p.Title, p.Summary, p.Authors) {
			out = append(out, repository.SearchResult{Ref: p.EntityRef(), Kind: entity.KindPaper, Title: p.Title, Description: p.Summary})
			n++
		}
	}
	n = 0
	for _, t := range tools {
		if n < limit && match(t.Name, t.Description, t.Category) {
			score := t.VeracityScore
			out = append(out, repository.SearchResult{Ref: t.EntityRef(), Kind: entity.KindTool, Title: t.Name, Description: t.Description, VeracityScore: &score})
			n++
		}
	}
	return out, nil
}

// Close is a no-op.
func (r *Repo) Close() error {
	return nil
}

func sortRels(rels []entity.Relationship) {
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })
}
