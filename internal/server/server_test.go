package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/layout"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/aigraph/aigraph/internal/repository/memory"
	"github.com/aigraph/aigraph/internal/session"
)

type wireNode struct {
	Ref string `json:"ref"`
}

type wireEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type wireSession struct {
	Session string     `json:"session"`
	View    string     `json:"view"`
	Nodes   []wireNode `json:"nodes"`
	Edges   []wireEdge `json:"edges"`
}

type wireDelta struct {
	AddedNodes []wireNode `json:"added_nodes"`
	AddedEdges []wireEdge `json:"added_edges"`
}

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	repo, err := memory.NewFixture()
	require.NoError(t, err)

	l := logger.Discard()
	build := func() *expand.Orchestrator {
		store := graph.NewStore(graph.WithLogger(l))
		engine := layout.New(layout.DefaultConfig(), layout.WithSeed(3), layout.WithLogger(l))
		return expand.New(repo, store, engine, expand.WithLogger(l))
	}
	sessions := session.NewManager(build, session.WithLogger(l))
	return New(repo, sessions), sessions
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, s *Server, view string) wireSession {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/sessions", `{"view":"`+view+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[wireSession](t, rec)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateSession(t *testing.T) {
	s, sessions := newTestServer(t)

	got := createSession(t, s, "tools")
	assert.NotEmpty(t, got.Session)
	assert.Equal(t, "tools", got.View)
	assert.Len(t, got.Nodes, 9)
	assert.Len(t, got.Edges, 6)
	assert.Equal(t, 1, sessions.Len())

	t.Run("default view", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/sessions", "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "topics", decode[wireSession](t, rec).View)
	})

	t.Run("unknown view", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/sessions", `{"view":"authors"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGraphAndView(t *testing.T) {
	s, _ := newTestServer(t)
	sess := createSession(t, s, "topics")

	rec := do(t, s, http.MethodGet, "/api/sessions/"+sess.Session+"/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[wireSession](t, rec)
	assert.Len(t, snap.Nodes, len(sess.Nodes))

	rec = do(t, s, http.MethodPost, "/api/sessions/"+sess.Session+"/view", `{"view":"papers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[wireSession](t, rec)
	assert.Len(t, snap.Nodes, 8)
	assert.Len(t, snap.Edges, 5)

	rec = do(t, s, http.MethodGet, "/api/sessions/missing/graph", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpand(t *testing.T) {
	s, _ := newTestServer(t)
	sess := createSession(t, s, "tools")
	path := "/api/sessions/" + sess.Session + "/expand/"

	rec := do(t, s, http.MethodPost, path+"topic-3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	delta := decode[wireDelta](t, rec)

	var refs []string
	for _, n := range delta.AddedNodes {
		refs = append(refs, n.Ref)
	}
	assert.ElementsMatch(t, []string{"topic-2", "topic-7"}, refs)
	assert.Len(t, delta.AddedEdges, 2)

	t.Run("repeat is empty", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, path+"topic-3", "")
		require.Equal(t, http.StatusOK, rec.Code)
		delta := decode[wireDelta](t, rec)
		assert.Empty(t, delta.AddedNodes)
		assert.Empty(t, delta.AddedEdges)
	})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad ref", path + "topic-x", http.StatusBadRequest},
		{"unknown kind", path + "author-1", http.StatusBadRequest},
		{"missing entity", path + "topic-9999", http.StatusNotFound},
		{"missing session", "/api/sessions/nope/expand/topic-1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestDeleteSession(t *testing.T) {
	s, sessions := newTestServer(t)
	sess := createSession(t, s, "topics")

	rec := do(t, s, http.MethodDelete, "/api/sessions/"+sess.Session, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, sessions.Len())

	rec = do(t, s, http.MethodDelete, "/api/sessions/"+sess.Session, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEntity(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/entities/topic-3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Entity struct {
			Name string `json:"name"`
		} `json:"entity"`
		Info          string            `json:"info"`
		Relationships []json.RawMessage `json:"relationships"`
	}](t, rec)
	assert.Equal(t, "Deep Learning", got.Entity.Name)
	assert.NotEmpty(t, got.Info)
	assert.NotEmpty(t, got.Relationships)

	t.Run("generated info is saved", func(t *testing.T) {
		e, err := s.repo.Get(context.Background(), entity.TopicRef(3))
		require.NoError(t, err)
		assert.Equal(t, got.Info, entity.DetailedInfo(e))
	})

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/entities/tool-9999", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/entities/nonsense", "").Code)
}

func TestUpdateTopic(t *testing.T) {
	s, _ := newTestServer(t)

	type wireTopic struct {
		ID       int64  `json:"id"`
		ParentID *int64 `json:"parent_id"`
	}

	// 1 -> 2 -> 3 -> 7 in the fixture.
	rec := do(t, s, http.MethodPatch, "/api/topics/7", `{"parent_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[wireTopic](t, rec)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, int64(1), *got.ParentID)

	rec = do(t, s, http.MethodPatch, "/api/topics/7", `{"parent_id":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[wireTopic](t, rec).ParentID)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"cycle", "/api/topics/1", `{"parent_id":3}`, http.StatusConflict},
		{"self", "/api/topics/2", `{"parent_id":2}`, http.StatusConflict},
		{"missing topic", "/api/topics/9999", `{"parent_id":1}`, http.StatusNotFound},
		{"missing parent", "/api/topics/2", `{"parent_id":9999}`, http.StatusNotFound},
		{"bad id", "/api/topics/abc", `{"parent_id":1}`, http.StatusBadRequest},
		{"bad parent", "/api/topics/2", `{"parent_id":-1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/search?q=reinforcement", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]json.RawMessage](t, rec), 3)

	rec = do(t, s, http.MethodGet, "/api/search?q=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/search?q=learning&limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
