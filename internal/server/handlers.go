package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/repository"
	"github.com/aigraph/aigraph/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

type viewData struct {
	View string `json:"view" validate:"omitempty,oneof=topics tools papers"`
}

type sessionResponse struct {
	Session string       `json:"session"`
	View    string       `json:"view"`
	Nodes   []graph.Node `json:"nodes"`
	Edges   []graph.Edge `json:"edges"`
}

func (s *Server) createSession(c echo.Context) error {
	data := new(viewData)
	if err := c.Bind(data); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid view")
	}
	view, err := expand.ParseView(data.View)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	sess, snap, err := s.sessions.Create(c.Request().Context(), view)
	if err != nil {
		s.log.Error("Failed to create session", "err", err)
		return fail(c, http.StatusInternalServerError, "Failed to load graph")
	}

	return c.JSON(http.StatusCreated, sessionResponse{
		Session: sess.ID,
		View:    string(view),
		Nodes:   snap.Nodes,
		Edges:   snap.Edges,
	})
}

type sessionParams struct {
	ID string `param:"id" validate:"required"`
}

// lookup binds the session id parameter and resolves the session.
func (s *Server) lookup(c echo.Context) (*session.Session, error) {
	params := new(sessionParams)
	if err := c.Bind(params); err != nil {
		return nil, fail(c, http.StatusBadRequest, "Invalid request params")
	}
	if err := c.Validate(params); err != nil {
		return nil, fail(c, http.StatusBadRequest, "Invalid request params")
	}
	sess, err := s.sessions.Get(params.ID)
	if err != nil {
		return nil, fail(c, http.StatusNotFound, "Session not found")
	}
	return sess, nil
}

func (s *Server) getGraph(c echo.Context) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) changeView(c echo.Context) error {
	type changeViewData struct {
		ID   string `param:"id" validate:"required"`
		View string `json:"view" validate:"omitempty,oneof=topics tools papers"`
	}

	data := new(changeViewData)
	if err := c.Bind(data); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid view")
	}
	view, err := expand.ParseView(data.View)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	sess, err := s.sessions.Get(data.ID)
	if err != nil {
		return fail(c, http.StatusNotFound, "Session not found")
	}

	snap, err := sess.Orchestrator().Load(c.Request().Context(), view)
	if err != nil {
		s.log.Error("Failed to load view", "session", sess.ID, "view", view, "err", err)
		return fail(c, http.StatusInternalServerError, "Failed to load graph")
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) expand(c echo.Context) error {
	type expandParams struct {
		ID  string `param:"id" validate:"required"`
		Ref string `param:"ref" validate:"required"`
	}

	params := new(expandParams)
	if err := c.Bind(params); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request params")
	}
	if err := c.Validate(params); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request params")
	}
	ref, err := entity.ParseRef(params.Ref)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	sess, err := s.sessions.Get(params.ID)
	if err != nil {
		return fail(c, http.StatusNotFound, "Session not found")
	}

	delta, err := sess.Orchestrator().Expand(c.Request().Context(), ref)
	switch {
	case errors.Is(err, expand.ErrNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrInvalidRef), errors.Is(err, entity.ErrUnknownKind):
		return fail(c, http.StatusBadRequest, err.Error())
	case err != nil:
		s.log.Error("Failed to expand", "session", sess.ID, "ref", ref, "err", err)
		return fail(c, http.StatusInternalServerError, "Failed to expand node")
	}
	return c.JSON(http.StatusOK, delta)
}

func (s *Server) deleteSession(c echo.Context) error {
	params := new(sessionParams)
	if err := c.Bind(params); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request params")
	}
	if !s.sessions.Delete(params.ID) {
		return fail(c, http.StatusNotFound, "Session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type entityResponse struct {
	Entity        entity.Entity         `json:"entity"`
	Info          string                `json:"info"`
	Relationships []entity.Relationship `json:"relationships"`
}

func (s *Server) getEntity(c echo.Context) error {
	ref, err := entity.ParseRef(c.Param("ref"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	e, err := s.repo.Get(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, err.Error())
	}
	if err != nil {
		s.log.Error("Failed to get entity", "ref", ref, "err", err)
		return fail(c, http.StatusInternalServerError, "Failed to get entity")
	}

	info, err := repository.DetailInfo(ctx, s.repo, ref)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to get entity")
	}
	rels, err := s.repo.Relationships(ctx, ref)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to get entity")
	}
	if rels == nil {
		rels = []entity.Relationship{}
	}

	return c.JSON(http.StatusOK, entityResponse{Entity: e, Info: info, Relationships: rels})
}

// updateTopic re-parents a topic. A null parent_id makes it a root.
func (s *Server) updateTopic(c echo.Context) error {
	type updateTopicData struct {
		ID       int64  `param:"id" validate:"required,gt=0"`
		ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
	}

	data := new(updateTopicData)
	if err := c.Bind(data); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid topic or parent id")
	}

	ctx := c.Request().Context()
	err := s.repo.SetTopicParent(ctx, data.ID, data.ParentID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrParentCycle):
		return fail(c, http.StatusConflict, err.Error())
	case err != nil:
		s.log.Error("Failed to update topic", "topic", data.ID, "err", err)
		return fail(c, http.StatusInternalServerError, "Failed to update topic")
	}

	t, err := s.repo.Get(ctx, entity.TopicRef(data.ID))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to update topic")
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) search(c echo.Context) error {
	type searchParams struct {
		Query string `query:"q"`
		Limit int    `query:"limit" validate:"gte=0,lte=100"`
	}

	params := new(searchParams)
	if err := c.Bind(params); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request params")
	}
	if err := c.Validate(params); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request params")
	}
	if params.Limit == 0 {
		params.Limit = repository.DefaultSearchLimit
	}

	results, err := s.repo.Search(c.Request().Context(), params.Query, params.Limit)
	if err != nil {
		s.log.Error("Failed to search", "query", params.Query, "err", err)
		return fail(c, http.StatusInternalServerError, "Search failed")
	}
	if results == nil {
		results = []repository.SearchResult{}
	}
	return c.JSON(http.StatusOK, results)
}
