// Package session keeps one graph store and orchestrator per browsing
// session. Sessions idle longer than the TTL are evicted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/charmbracelet/log"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrNotFound is returned for unknown or evicted session ids.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is the idle time after which a session is evicted.
const DefaultTTL = 30 * time.Minute

// Builder creates the orchestrator, with a fresh store, for a new session.
type Builder func() *expand.Orchestrator

// Session is one client's view of the graph.
type Session struct {
	ID      string
	Created time.Time

	orch     *expand.Orchestrator
	lastUsed atomic.Int64 // unix nanoseconds
}

// Orchestrator returns the session's orchestrator.
func (s *Session) Orchestrator() *expand.Orchestrator {
	return s.orch
}

// Snapshot returns the current contents of the session's store.
func (s *Session) Snapshot() graph.Snapshot {
	return s.orch.Store().Snapshot()
}

// LastUsed returns when the session was last looked up.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// Manager is a registry of live sessions. It is safe for concurrent use.
type Manager struct {
	build Builder
	ttl   time.Duration
	now   func() time.Time
	log   *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the idle timeout. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now (for testing).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager creates a manager that builds sessions with build.
func NewManager(build Builder, opts ...Option) *Manager {
	m := &Manager{
		build:    build,
		ttl:      DefaultTTL,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.With("session")
	}
	return m
}

// Create starts a session and loads view into it.
func (m *Manager) Create(ctx context.Context, view expand.View) (*Session, graph.Snapshot, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, graph.Snapshot{}, fmt.Errorf("generating session id: %w", err)
	}

	now := m.now()
	s := &Session{ID: id, Created: now, orch: m.build()}
	s.touch(now)

	snap, err := s.orch.Load(ctx, view)
	if err != nil {
		return nil, graph.Snapshot{}, fmt.Errorf("loading %s view: %w", view, err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Debug("session created", "id", id, "view", view, "nodes", len(snap.Nodes))
	return s, snap, nil
}

// Get returns the session with id and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(m.now())
	return s, nil
}

// Delete removes a session. Reports whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Evict() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.log.Info("evicted idle sessions", "count", n, "remaining", len(m.sessions))
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Evict()
		}
	}
}
