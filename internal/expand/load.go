package expand

import (
	"context"
	"fmt"
	"strings"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/graph"
)

// View selects which entities an initial load places on the canvas.
type View string

const (
	ViewTopics View = "topics"
	ViewTools  View = "tools"
	ViewPapers View = "papers"
)

// ParseView parses a view name. An empty name selects ViewTopics.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewTopics, nil
	case ViewTopics, ViewTools, ViewPapers:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q (want topics, tools or papers)", s)
}

// Load resets the store and draws view:
//
//   - topics: root topics on the inner ring, each child near its parent,
//     tools and papers on their outer rings.
//   - tools: every tool on the inner ring, related topics near their tool.
//   - papers: every paper on the inner ring, related topics near their paper.
//
// Stored relationships between drawn nodes are then reconciled into edges.
func (o *Orchestrator) Load(ctx context.Context, view View) (graph.Snapshot, error) {
	rels, err := o.repo.ListRelationships(ctx)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("listing relationships: %w", err)
	}

	o.mergeMu.Lock()
	defer o.mergeMu.Unlock()

	o.store.Reset()
	switch view {
	case ViewTopics, "":
		err = o.loadTopics(ctx)
	case ViewTools:
		err = o.loadFocus(ctx, entity.KindTool, rels)
	case ViewPapers:
		err = o.loadFocus(ctx, entity.KindPaper, rels)
	default:
		err = fmt.Errorf("unknown view %q", view)
	}
	if err != nil {
		return graph.Snapshot{}, err
	}

	o.rec.Apply(o.store, rels)
	snap := o.store.Snapshot()
	o.log.Info("loaded view", "view", view, "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return snap, nil
}

func (o *Orchestrator) loadTopics(ctx context.Context) error {
	topics, err := o.repo.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("listing topics: %w", err)
	}
	tools, err := o.repo.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}
	papers, err := o.repo.ListPapers(ctx)
	if err != nil {
		return fmt.Errorf("listing papers: %w", err)
	}

	children := make(map[int64][]*entity.Topic)
	var roots []entity.Entity
	for i := range topics {
		t := &topics[i]
		if t.ParentID == nil {
			roots = append(roots, t)
			continue
		}
		children[*t.ParentID] = append(children[*t.ParentID], t)
	}
	o.addRing(entity.KindTopic, roots)

	// Breadth-first so every parent is placed before its children.
	queue := make([]*entity.Topic, 0, len(topics))
	for _, r := range roots {
		queue = append(queue, r.(*entity.Topic))
	}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		pn, _ := o.store.GetNode(parent.EntityRef())
		for _, child := range children[parent.ID] {
			o.addNear(pn.Position, child)
			queue = append(queue, child)
		}
	}

	// Topics whose parent chain never reaches a root.
	var orphans []entity.Entity
	for i := range topics {
		if !o.store.HasNode(topics[i].EntityRef()) {
			orphans = append(orphans, &topics[i])
		}
	}
	o.addRing(entity.KindTopic, orphans)

	o.addRing(entity.KindTool, toolEntities(tools))
	o.addRing(entity.KindPaper, paperEntities(papers))
	return nil
}

// loadFocus draws every entity of kind on the inner ring and the topics
// linked to them next to the first linked entity.
func (o *Orchestrator) loadFocus(ctx context.Context, kind entity.Kind, rels []entity.Relationship) error {
	var focus []entity.Entity
	switch kind {
	case entity.KindTool:
		tools, err := o.repo.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("listing tools: %w", err)
		}
		focus = toolEntities(tools)
	case entity.KindPaper:
		papers, err := o.repo.ListPapers(ctx)
		if err != nil {
			return fmt.Errorf("listing papers: %w", err)
		}
		focus = paperEntities(papers)
	}

	positions := o.engine.PlaceInnerRing(len(focus), o.store.Positions())
	for i, e := range focus {
		o.store.AddNode(graph.Node{Ref: e.EntityRef(), Position: positions[i], Payload: e})
	}

	for _, rel := range rels {
		var anchor, other entity.Ref
		switch {
		case rel.Source.Kind == kind && rel.Target.Kind == entity.KindTopic:
			anchor, other = rel.Source, rel.Target
		case rel.Target.Kind == kind && rel.Source.Kind == entity.KindTopic:
			anchor, other = rel.Target, rel.Source
		default:
			continue
		}
		an, ok := o.store.GetNode(anchor)
		if !ok || o.store.HasNode(other) {
			continue
		}
		t, err := o.repo.Get(ctx, other)
		if err != nil {
			o.log.Warn("skipping unresolvable topic", "ref", other, "err", err)
			continue
		}
		o.addNear(an.Position, t)
	}
	return nil
}

func (o *Orchestrator) addRing(kind entity.Kind, es []entity.Entity) {
	positions := o.engine.PlaceRing(kind, len(es), o.store.Positions())
	for i, e := range es {
		o.store.AddNode(graph.Node{Ref: e.EntityRef(), Position: positions[i], Payload: e})
	}
}

func (o *Orchestrator) addNear(parent graph.Position, e entity.Entity) {
	pos := o.engine.PlaceNear(parent, o.store.Positions())
	o.store.AddNode(graph.Node{Ref: e.EntityRef(), Position: pos, Payload: e})
}

func toolEntities(tools []entity.Tool) []entity.Entity {
	out := make([]entity.Entity, len(tools))
	for i := range tools {
		out[i] = &tools[i]
	}
	return out
}

func paperEntities(papers []entity.Paper) []entity.Entity {
	out := make([]entity.Entity, len(papers))
	for i := range papers {
		out[i] = &papers[i]
	}
	return out
}
