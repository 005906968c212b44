package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/logger"
	"github.com/aigraph/aigraph/internal/repository"
	"github.com/aigraph/aigraph/internal/server"
	"github.com/aigraph/aigraph/internal/session"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph API over HTTP",
	Long: `Serve the graph API over HTTP until interrupted.

Each client creates a session holding its own graph; sessions idle longer
than server.session_ttl are dropped.

Routes:
  POST   /api/sessions                  {view} -> session and snapshot
  GET    /api/sessions/:id/graph        snapshot
  POST   /api/sessions/:id/view         {view} -> reload, snapshot
  POST   /api/sessions/:id/expand/:ref  delta
  DELETE /api/sessions/:id
  GET    /api/entities/:ref             entity, detail info, relationships
  GET    /api/search?q=                 search results
  GET    /health`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if empty, err := repository.IsEmpty(ctx, repo); err == nil && empty {
		logger.Warn("Repository holds no topics; run 'aig seed' to load the starter graph")
	}

	ws := newWorkspace(cfg, repo)
	sessions := session.NewManager(ws.newOrchestrator, session.WithTTL(cfg.Server.SessionTTL))

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return server.New(repo, sessions).Run(ctx, addr)
}
