// Package layout assigns canvas positions to nodes entering the graph.
//
// Placement never fails. Each candidate is jittered and retried until it is
// at least MinSeparation away from every occupied position; once the retry
// budget is spent the last candidate is accepted and the event is logged.
// All randomness comes from an injected source so placement is reproducible.
package layout

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/charmbracelet/log"
)

// Config holds the placement constants.
type Config struct {
	Center        graph.Position `yaml:"center"`
	Radius        float64        `yaml:"radius"`         // inner ring radius for root nodes
	MinSeparation float64        `yaml:"min_separation"` // minimum distance between nodes
	Jitter        float64        `yaml:"jitter"`         // max offset per axis
	MaxAttempts   int            `yaml:"max_attempts"`
	ChildMin      float64        `yaml:"child_min"` // distance band for nodes placed near a parent
	ChildMax      float64        `yaml:"child_max"`
	ToolRing      float64        `yaml:"tool_ring"`  // radius multiplier for tools
	PaperRing     float64        `yaml:"paper_ring"` // radius multiplier for papers
}

// DefaultConfig returns the standard placement constants.
func DefaultConfig() Config {
	return Config{
		Center:        graph.Position{X: 0, Y: 0},
		Radius:        300,
		MinSeparation: 180,
		Jitter:        50,
		MaxAttempts:   5,
		ChildMin:      200,
		ChildMax:      300,
		ToolRing:      1.5,
		PaperRing:     1.8,
	}
}

// RingScale returns the radius multiplier for root nodes of kind k.
func (c Config) RingScale(k entity.Kind) float64 {
	switch k {
	case entity.KindTool:
		return c.ToolRing
	case entity.KindPaper:
		return c.PaperRing
	}
	return 1
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Radius <= 0 {
		c.Radius = d.Radius
	}
	if c.MinSeparation <= 0 {
		c.MinSeparation = d.MinSeparation
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.ChildMin <= 0 {
		c.ChildMin = d.ChildMin
	}
	if c.ChildMax < c.ChildMin {
		c.ChildMax = c.ChildMin
	}
	if c.ToolRing <= 0 {
		c.ToolRing = d.ToolRing
	}
	if c.PaperRing <= 0 {
		c.PaperRing = d.PaperRing
	}
	return c
}

// Engine computes positions. It is safe for concurrent use.
type Engine struct {
	cfg Config
	log *log.Logger

	mu          sync.Mutex
	rng         *rand.Rand
	degenerated int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithSeed seeds the random source.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = NewRand(seed)
	}
}

// WithLogger sets the logger used for degenerate placements.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New creates an engine. Without WithRand or WithSeed it uses seed 1.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(1)
	}
	if e.log == nil {
		e.log = logger.With("layout")
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Degenerated returns how many placements exhausted the retry budget.
func (e *Engine) Degenerated() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degenerated
}

// PlaceRing positions n root nodes of kind k evenly around the canvas
// center. Tools and papers use outer rings.
func (e *Engine) PlaceRing(k entity.Kind, n int, occupied []graph.Position) []graph.Position {
	radius := e.cfg.Radius * e.cfg.RingScale(k)
	return e.placeCircle(e.cfg.Center, radius, n, occupied)
}

// PlaceInnerRing positions n root nodes on the inner ring regardless of
// kind. Views that focus on tools or papers use it.
func (e *Engine) PlaceInnerRing(n int, occupied []graph.Position) []graph.Position {
	return e.placeCircle(e.cfg.Center, e.cfg.Radius, n, occupied)
}

// PlaceAround positions a batch of n siblings evenly around anchor, at the
// outer edge of the child distance band. Before jitter every sibling sits
// exactly ChildMax from anchor.
func (e *Engine) PlaceAround(anchor graph.Position, n int, occupied []graph.Position) []graph.Position {
	return e.placeCircle(anchor, e.cfg.ChildMax, n, occupied)
}

// PlaceNear positions one node at a random angle and a random distance
// within the child band from parent.
func (e *Engine) PlaceNear(parent graph.Position, occupied []graph.Position) graph.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.settle(func() graph.Position {
		angle := e.rng.Float64() * 2 * math.Pi
		dist := e.cfg.ChildMin + e.rng.Float64()*(e.cfg.ChildMax-e.cfg.ChildMin)
		return graph.Position{
			X: parent.X + dist*math.Cos(angle),
			Y: parent.Y + dist*math.Sin(angle),
		}
	}, occupied)
}

func (e *Engine) placeCircle(anchor graph.Position, radius float64, n int, occupied []graph.Position) []graph.Position {
	if n <= 0 {
		return nil
	}

	// The radius stays fixed however large the batch. Siblings too crowded
	// to clear MinSeparation are jittered and, failing that, degrade.
	e.mu.Lock()
	defer e.mu.Unlock()

	placed := make([]graph.Position, 0, len(occupied)+n)
	placed = append(placed, occupied...)
	out := make([]graph.Position, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		base := graph.Position{
			X: anchor.X + radius*math.Cos(angle),
			Y: anchor.Y + radius*math.Sin(angle),
		}
		p := e.settle(func() graph.Position { return base }, placed)
		placed = append(placed, p)
		out = append(out, p)
	}
	return out
}

// settle jitters candidates from gen until one clears every occupied
// position or the attempt budget is spent. Callers hold e.mu.
func (e *Engine) settle(gen func() graph.Position, occupied []graph.Position) graph.Position {
	var p graph.Position
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		p = e.jitter(gen())
		if isClear(p, occupied, e.cfg.MinSeparation) {
			return p
		}
	}
	e.degenerated++
	e.log.Debug("placement retry budget exhausted, accepting overlap",
		"x", p.X, "y", p.Y, "attempts", e.cfg.MaxAttempts)
	return p
}

func (e *Engine) jitter(p graph.Position) graph.Position {
	if e.cfg.Jitter == 0 {
		return p
	}
	return graph.Position{
		X: p.X + (e.rng.Float64()*2-1)*e.cfg.Jitter,
		Y: p.Y + (e.rng.Float64()*2-1)*e.cfg.Jitter,
	}
}

// isClear reports whether p is at least minSep from every position in occupied.
func isClear(p graph.Position, occupied []graph.Position, minSep float64) bool {
	for _, q := range occupied {
		if p.Dist(q) < minSep {
			return false
		}
	}
	return true
}
