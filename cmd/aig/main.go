// Package main provides the aig CLI entry point.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/singleflight"

	"github.com/aigraph/aigraph/internal/arxiv"
	"github.com/aigraph/aigraph/internal/config"
	"github.com/aigraph/aigraph/internal/enrich"
	"github.com/aigraph/aigraph/internal/enrich/openai"
	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/graph"
	"github.com/aigraph/aigraph/internal/layout"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/aigraph/aigraph/internal/repository"
	"github.com/aigraph/aigraph/internal/repository/memory"
	"github.com/aigraph/aigraph/internal/repository/sqlite"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
	logLevel    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aig",
	Short: "Explore a knowledge graph of AI topics, tools and papers",
	Long: `aig browses a graph of AI topics, tools and papers.

Expanding a node reveals its stored neighbours. Nodes without stored
neighbours are enriched on demand: a language model proposes related
topics and tools, arXiv supplies recent papers, and the results are
persisted so the next expansion is served from storage.

Data lives in SQLite (or an in-memory fixture). Commands output JSON by
default; pass --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $AIG_CONFIG, ./aig.yaml, then the user config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.Version = Version
}

// mustLoadConfig loads .env and the config file, initializes logging, and
// exits on error.
func mustLoadConfig() *config.Config {
	if err := config.LoadDotEnv(""); err != nil {
		exitWithError(ExitConfigError, "loading .env: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger.Init(logger.Params{Level: cfg.Log.Level})
	return cfg
}

// mustOpenRepository opens the configured backend, exits on error.
// The caller is responsible for calling Close() on the returned repository.
func mustOpenRepository(cfg *config.Config) repository.Repository {
	switch cfg.Database.Backend {
	case config.BackendMemory:
		if strings.HasSuffix(cfg.Database.Path, ".jsonl") {
			repo, err := memory.LoadJSONL(cfg.Database.Path)
			if err != nil {
				exitWithError(ExitDataError, "loading %s: %v", cfg.Database.Path, err)
			}
			return repo
		}
		repo, err := memory.NewFixture()
		if err != nil {
			exitWithError(ExitDataError, "loading fixture: %v", err)
		}
		return repo
	default:
		return mustOpenDatabase(cfg)
	}
}

// mustOpenDatabase opens the SQLite database, exits on error.
func mustOpenDatabase(cfg *config.Config) *sqlite.DB {
	db, err := sqlite.OpenDB(cfg.Database.Path)
	if err != nil {
		exitWithError(ExitConfigError, "opening database: %v", err)
	}
	return db
}

// mustParseRef parses a "<kind>-<id>" argument, exits on error.
func mustParseRef(s string) entity.Ref {
	ref, err := entity.ParseRef(s)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	return ref
}

// workspace holds what every graph-building command shares: the
// repository, the enrichment sources and one single-flight group so that
// concurrent expansions of a ref enrich it once.
type workspace struct {
	cfg    *config.Config
	repo   repository.Repository
	source enrich.Source
	papers enrich.PaperSource
	flight singleflight.Group
}

func newWorkspace(cfg *config.Config, repo repository.Repository) *workspace {
	w := &workspace{cfg: cfg, repo: repo}
	w.source = newSource(cfg)
	if cfg.Enrichment.Arxiv {
		w.papers = arxiv.NewClient()
	}
	return w
}

// newSource builds the candidate source. Without a usable language model
// every expansion falls back to the default candidates.
func newSource(cfg *config.Config) enrich.Source {
	l := logger.With("enrich")
	if cfg.Enrichment.Provider != config.ProviderOpenAI {
		return enrich.WithDefaults(nil, l)
	}
	client, err := openai.New(openai.Config{
		APIKey:       cfg.Enrichment.APIKey,
		BaseURL:      cfg.Enrichment.BaseURL,
		Model:        cfg.Enrichment.Model,
		Temperature:  cfg.Enrichment.Temperature,
		RateLimit:    cfg.Enrichment.RateLimit,
		VerifyScores: cfg.Enrichment.VerifyScores,
	}, logger.With("openai"))
	if err != nil {
		l.Warn("language model disabled, using default candidates", "err", err)
		return enrich.WithDefaults(nil, l)
	}
	return enrich.WithDefaults(client, l)
}

// newOrchestrator builds an orchestrator over a fresh store.
func (w *workspace) newOrchestrator() *expand.Orchestrator {
	store := graph.NewStore()
	engine := layout.New(w.cfg.Layout.Config, layout.WithSeed(w.cfg.Layout.Seed))
	opts := []expand.Option{
		expand.WithSource(w.source),
		expand.WithConfig(w.cfg.ExpandConfig()),
		expand.WithFlight(&w.flight),
	}
	if w.papers != nil {
		opts = append(opts, expand.WithPaperSource(w.papers))
	}
	return expand.New(w.repo, store, engine, opts...)
}
