package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/layout"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/aigraph/aigraph/internal/repository/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	repo, err := memory.NewFixture()
	if err != nil {
		t.Fatal(err)
	}
	l := logger.Discard()
	build := func() *expand.Orchestrator {
		store := graph.NewStore(graph.WithLogger(l))
		engine := layout.New(layout.DefaultConfig(), layout.WithLogger(l))
		return expand.New(repo, store, engine, expand.WithLogger(l))
	}
	return NewManager(build, WithTTL(10*time.Minute), WithClock(clock.Now), WithLogger(l))
}

func TestManager_CreateGetDelete(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	s, snap, err := m.Create(context.Background(), expand.ViewTopics)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(s.ID) != 21 {
		t.Errorf("session id %q has length %d, want 21", s.ID, len(s.ID))
	}
	if len(snap.Nodes) == 0 {
		t.Error("Create() returned an empty snapshot")
	}
	if got := len(s.Snapshot().Nodes); got != len(snap.Nodes) {
		t.Errorf("session store has %d nodes, snapshot %d", got, len(snap.Nodes))
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	if !m.Delete(s.ID) {
		t.Error("Delete() = false for a live session")
	}
	if m.Delete(s.ID) {
		t.Error("Delete() = true for a deleted session")
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(t, clock)

	a, _, err := m.Create(context.Background(), expand.ViewTopics)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := m.Create(context.Background(), expand.ViewTools)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatal("two sessions share an id")
	}

	na, _ := a.Orchestrator().Store().Len()
	nb, _ := b.Orchestrator().Store().Len()
	if na == nb {
		t.Errorf("topics and tools views have the same node count %d; stores may be shared", na)
	}
}

func TestManager_Evict(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	idle, _, err := m.Create(ctx, expand.ViewTopics)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(6 * time.Minute)
	active, _, err := m.Create(ctx, expand.ViewTopics)
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(5 * time.Minute)
	if _, err := m.Get(active.ID); err != nil {
		t.Fatal(err)
	}

	if n := m.Evict(); n != 1 {
		t.Errorf("Evict() = %d, want 1", n)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session survived eviction: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
