// Package server exposes browsing sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aigraph/aigraph/internal/logger"
	"github.com/aigraph/aigraph/internal/repository"
	"github.com/aigraph/aigraph/internal/session"
)

// Timeouts.
const (
	ShutdownTimeout = 10 * time.Second
	EvictInterval   = time.Minute
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Server serves the graph API for one repository.
type Server struct {
	echo     *echo.Echo
	repo     repository.Repository
	sessions *session.Manager
	log      *log.Logger
}

// New builds a server with its routes registered.
func New(repo repository.Repository, sessions *session.Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	s := &Server{
		echo:     e,
		repo:     repo,
		sessions: sessions,
		log:      logger.With("server"),
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api := s.echo.Group("/api")

	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id/graph", s.getGraph)
	api.POST("/sessions/:id/view", s.changeView)
	api.POST("/sessions/:id/expand/:ref", s.expand)
	api.DELETE("/sessions/:id", s.deleteSession)

	api.GET("/entities/:ref", s.getEntity)
	api.PATCH("/topics/:id", s.updateTopic)
	api.GET("/search", s.search)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// Idle sessions are evicted while the server runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	evictCtx, stopEvict := context.WithCancel(ctx)
	defer stopEvict()
	go s.sessions.Run(evictCtx, EvictInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Failed to shutdown server", "err", err)
		return err
	}
	s.log.Info("Server stopped")
	return nil
}
