package graph

import (
	"sync"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/charmbracelet/log"
)

// Store is the authoritative set of nodes and edges currently shown.
// Every edge in the store has both endpoints present as nodes.
type Store struct {
	mu        sync.RWMutex
	nodes     map[entity.Ref]Node
	nodeOrder []entity.Ref
	edges     map[string]Edge
	edgeOrder []string
	log       *log.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for rejected edges.
func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		nodes: make(map[entity.Ref]Node),
		edges: make(map[string]Edge),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.With("graph")
	}
	return s
}

// AddNode inserts n unless a node with the same ref exists. An existing
// node keeps its original position. Reports whether n was added.
func (s *Store) AddNode(n Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[n.Ref]; ok {
		return false
	}
	s.nodes[n.Ref] = n
	s.nodeOrder = append(s.nodeOrder, n.Ref)
	return true
}

// AddEdge inserts e unless an edge with the same identity exists. Edges
// with a missing endpoint are logged and dropped. Reports whether e was added.
func (s *Store) AddEdge(e Edge) bool {
	if e.ID == "" {
		e.ID = EdgeID(e.Source, e.Target, e.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[e.ID]; ok {
		return false
	}
	_, hasSource := s.nodes[e.Source]
	_, hasTarget := s.nodes[e.Target]
	if !hasSource || !hasTarget {
		s.log.Debug("rejecting dangling edge", "edge", e.ID, "reason", danglingReason(hasSource, hasTarget))
		return false
	}
	s.edges[e.ID] = e
	s.edgeOrder = append(s.edgeOrder, e.ID)
	return true
}

// HasNode reports whether ref is drawn.
func (s *Store) HasNode(ref entity.Ref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[ref]
	return ok
}

// GetNode returns the node for ref.
func (s *Store) GetNode(ref entity.Ref) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[ref]
	return n, ok
}

// HasEdge reports whether an edge with the given identity is stored.
func (s *Store) HasEdge(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[id]
	return ok
}

// Positions returns the positions of all nodes.
func (s *Store) Positions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Position, 0, len(s.nodeOrder))
	for _, ref := range s.nodeOrder {
		out = append(out, s.nodes[ref].Position)
	}
	return out
}

// Len returns the number of nodes and edges.
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Nodes: make([]Node, 0, len(s.nodeOrder)),
		Edges: make([]Edge, 0, len(s.edgeOrder)),
	}
	for _, ref := range s.nodeOrder {
		snap.Nodes = append(snap.Nodes, s.nodes[ref])
	}
	for _, id := range s.edgeOrder {
		snap.Edges = append(snap.Edges, s.edges[id])
	}
	return snap
}

// Reset clears all nodes and edges.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[entity.Ref]Node)
	s.nodeOrder = nil
	s.edges = make(map[string]Edge)
	s.edgeOrder = nil
}

func danglingReason(hasSource, hasTarget bool) string {
	switch {
	case !hasSource && !hasTarget:
		return "missing_both"
	case !hasSource:
		return "missing_source"
	default:
		return "missing_target"
	}
}
