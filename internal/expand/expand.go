// Package expand implements node expansion: resolving the neighbours of an
// entity, enriching it when nothing is stored yet, and merging the result
// into a session's graph store.
package expand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aigraph/aigraph/internal/enrich"
	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/layout"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/aigraph/aigraph/internal/repository"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned by Expand when the ref does not resolve. It is
// always joined with repository.ErrNotFound.
var ErrNotFound = errors.New("expansion target not found")

// DefaultResolveTimeout bounds one shared resolution, enrichment included.
const DefaultResolveTimeout = 2 * time.Minute

// Config controls how many candidates are requested per kind and which
// kinds each source kind expands into.
type Config struct {
	TopicCount int     `yaml:"topic_count"`
	ToolCount  int     `yaml:"tool_count"`
	PaperCount int     `yaml:"paper_count"`
	MinScore   float64 `yaml:"min_score"`

	// Targets maps a source kind to the kinds requested on a cache miss.
	Targets map[entity.Kind][]entity.Kind `yaml:"targets"`
}

// DefaultConfig returns the standard expansion settings.
func DefaultConfig() Config {
	return Config{
		TopicCount: 5,
		ToolCount:  3,
		PaperCount: 3,
		MinScore:   0.3,
		Targets: map[entity.Kind][]entity.Kind{
			entity.KindTopic: {entity.KindTopic, entity.KindTool, entity.KindPaper},
			entity.KindTool:  {entity.KindTopic},
			entity.KindPaper: {entity.KindTopic},
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopicCount <= 0 {
		c.TopicCount = d.TopicCount
	}
	if c.ToolCount <= 0 {
		c.ToolCount = d.ToolCount
	}
	if c.PaperCount <= 0 {
		c.PaperCount = d.PaperCount
	}
	if c.Targets == nil {
		c.Targets = d.Targets
	}
	return c
}

// Orchestrator expands nodes of one graph store. Expansions of the same ref
// are collapsed into one repository resolution; merges into the store are
// serialized so each delta is exact.
type Orchestrator struct {
	repo    repository.Repository
	store   *graph.Store
	engine  *layout.Engine
	rec     *graph.Reconciler
	source  enrich.Source
	papers  enrich.PaperSource
	cfg     Config
	log     *log.Logger
	flight  *singleflight.Group
	timeout time.Duration
	mergeMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSource sets the topic and tool enrichment source.
func WithSource(src enrich.Source) Option {
	return func(o *Orchestrator) {
		o.source = src
	}
}

// WithPaperSource sets the paper enrichment source.
func WithPaperSource(src enrich.PaperSource) Option {
	return func(o *Orchestrator) {
		o.papers = src
	}
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg.withDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithFlight shares a single-flight group between orchestrators backed by
// the same repository, so concurrent sessions never enrich one ref twice.
func WithFlight(g *singleflight.Group) Option {
	return func(o *Orchestrator) {
		o.flight = g
	}
}

// WithResolveTimeout overrides DefaultResolveTimeout.
func WithResolveTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// New creates an orchestrator over repo that merges into store. Without
// WithSource every cache miss yields the static default candidates.
func New(repo repository.Repository, store *graph.Store, engine *layout.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:    repo,
		store:   store,
		engine:  engine,
		cfg:     DefaultConfig(),
		timeout: DefaultResolveTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.With("expand")
	}
	if o.source == nil {
		o.source = enrich.WithDefaults(nil, o.log)
	}
	if o.flight == nil {
		o.flight = &singleflight.Group{}
	}
	if o.timeout <= 0 {
		o.timeout = DefaultResolveTimeout
	}
	o.rec = graph.NewReconciler(o.log)
	return o
}

// Store returns the graph store the orchestrator merges into.
func (o *Orchestrator) Store() *graph.Store {
	return o.store
}

// resolution is the repository-level outcome of expanding a ref. It does
// not depend on any graph store, so it can be shared between callers.
type resolution struct {
	source  entity.Entity
	targets []entity.Entity
	rels    []entity.Relationship
}

// Expand adds the neighbours of ref to the store and returns what was newly
// added. Enrichment and persistence failures shrink the delta but are never
// returned; the only errors are ErrNotFound, repository read failures and
// cancellation of ctx.
//
// The resolution is shared by every caller expanding ref at the same time
// and runs detached from their contexts, so one caller giving up neither
// fails the others nor leaves a half-enriched ref behind.
func (o *Orchestrator) Expand(ctx context.Context, ref entity.Ref) (graph.Delta, error) {
	if err := ref.Validate(); err != nil {
		return graph.Delta{}, err
	}

	ch := o.flight.DoChan(ref.String(), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		return o.resolve(rctx, ref)
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return graph.Delta{}, ctx.Err()
	}
	if r.Err != nil {
		return graph.Delta{}, r.Err
	}
	if r.Shared {
		o.log.Debug("joined in-flight expansion", "ref", ref)
	}

	delta := o.merge(ref, r.Val.(*resolution))
	o.log.Info("expanded", "ref", ref,
		"added_nodes", len(delta.AddedNodes), "added_edges", len(delta.AddedEdges))
	return delta, nil
}

func (o *Orchestrator) resolve(ctx context.Context, ref entity.Ref) (*resolution, error) {
	src, err := o.repo.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}

	rels, err := o.repo.Relationships(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading relationships of %s: %w", ref, err)
	}
	if len(rels) == 0 {
		o.enrich(ctx, src)
		if rels, err = o.repo.Relationships(ctx, ref); err != nil {
			return nil, fmt.Errorf("loading relationships of %s: %w", ref, err)
		}
	}

	res := &resolution{source: src}
	seen := make(map[entity.Ref]bool, len(rels))
	for _, rel := range rels {
		other, ok := rel.Other(ref)
		if !ok || !other.Kind.Valid() {
			continue
		}
		res.rels = append(res.rels, rel)
		if seen[other] {
			continue
		}
		seen[other] = true

		target, err := o.repo.Get(ctx, other)
		if err != nil {
			o.log.Warn("skipping unresolvable neighbour", "ref", ref, "neighbour", other, "err", err)
			continue
		}
		res.targets = append(res.targets, target)
	}
	return res, nil
}

// merge places targets missing from the store around the source node and
// adds the edges that reconcile. Positions are assigned in one batch.
func (o *Orchestrator) merge(ref entity.Ref, res *resolution) graph.Delta {
	o.mergeMu.Lock()
	defer o.mergeMu.Unlock()

	var delta graph.Delta

	anchor, ok := o.store.GetNode(ref)
	if !ok {
		pos := o.engine.PlaceRing(ref.Kind, 1, o.store.Positions())[0]
		anchor = graph.Node{Ref: ref, Position: pos, Payload: res.source}
		if o.store.AddNode(anchor) {
			delta.AddedNodes = append(delta.AddedNodes, anchor)
		}
	}

	var missing []entity.Entity
	for _, t := range res.targets {
		if !o.store.HasNode(t.EntityRef()) {
			missing = append(missing, t)
		}
	}

	positions := o.engine.PlaceAround(anchor.Position, len(missing), o.store.Positions())
	for i, t := range missing {
		n := graph.Node{Ref: t.EntityRef(), Position: positions[i], Payload: t}
		if o.store.AddNode(n) {
			delta.AddedNodes = append(delta.AddedNodes, n)
		}
	}

	delta.AddedEdges = o.rec.Apply(o.store, res.rels)
	return delta
}
