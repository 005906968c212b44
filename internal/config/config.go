// Package config loads aig settings from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/layout"
	"gopkg.in/yaml.v3"
)

// Backends and providers.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Environment variables that override file settings.
const (
	EnvConfig        = "AIG_CONFIG"
	EnvDB            = "AIG_DB"
	EnvAddr          = "AIG_ADDR"
	EnvLogLevel      = "AIG_LOG_LEVEL"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete aig configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Layout     LayoutConfig     `yaml:"layout"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig selects the repository backend.
type DatabaseConfig struct {
	Backend string `yaml:"backend"` // sqlite or memory
	Path    string `yaml:"path"`    // sqlite file, or optional JSONL dump for memory
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LayoutConfig adds the random seed to the placement constants.
type LayoutConfig struct {
	layout.Config `yaml:",inline"`
	Seed          uint64 `yaml:"seed"`
}

// EnrichmentConfig configures candidate generation.
type EnrichmentConfig struct {
	Provider     string  `yaml:"provider"` // openai or static
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url,omitempty"`
	APIKey       string  `yaml:"api_key,omitempty"`
	Temperature  float64 `yaml:"temperature"`
	RateLimit    float64 `yaml:"rate_limit"` // requests per second
	VerifyScores bool    `yaml:"verify_scores"`
	Arxiv        bool    `yaml:"arxiv"`
	TopicCount   int     `yaml:"topic_count"`
	ToolCount    int     `yaml:"tool_count"`
	PaperCount   int     `yaml:"paper_count"`
	MinScore     float64 `yaml:"min_score"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	ex := expand.DefaultConfig()
	return &Config{
		Database: DatabaseConfig{
			Backend: BackendSQLite,
			Path:    "aigraph.db",
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			SessionTTL: 30 * time.Minute,
		},
		Layout: LayoutConfig{Config: layout.DefaultConfig(), Seed: 1},
		Enrichment: EnrichmentConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			RateLimit:   2,
			Arxiv:       true,
			TopicCount:  ex.TopicCount,
			ToolCount:   ex.ToolCount,
			PaperCount:  ex.PaperCount,
			MinScore:    ex.MinScore,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path resolves through Path; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.Database.Path = ExpandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.Enrichment.APIKey = v
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		c.Enrichment.BaseURL = v
	}
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalid)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: database.backend %q (valid: sqlite, memory)", ErrInvalid, c.Database.Backend)
	}

	switch c.Enrichment.Provider {
	case ProviderOpenAI, ProviderStatic:
	default:
		return fmt.Errorf("%w: enrichment.provider %q (valid: openai, static)", ErrInvalid, c.Enrichment.Provider)
	}
	if c.Enrichment.MinScore < 0 || c.Enrichment.MinScore > 1 {
		return fmt.Errorf("%w: enrichment.min_score must be within [0, 1]", ErrInvalid)
	}
	if c.Layout.MinSeparation < 0 || c.Layout.Radius < 0 {
		return fmt.Errorf("%w: layout distances must not be negative", ErrInvalid)
	}
	if c.Layout.ChildMax > 0 && c.Layout.ChildMax < c.Layout.ChildMin {
		return fmt.Errorf("%w: layout.child_max is below layout.child_min", ErrInvalid)
	}
	return nil
}

// ExpandConfig returns the orchestrator settings.
func (c *Config) ExpandConfig() expand.Config {
	cfg := expand.DefaultConfig()
	cfg.TopicCount = c.Enrichment.TopicCount
	cfg.ToolCount = c.Enrichment.ToolCount
	cfg.PaperCount = c.Enrichment.PaperCount
	cfg.MinScore = c.Enrichment.MinScore
	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Enrichment.APIKey != "" {
		out.Enrichment.APIKey = "***"
	}
	return &out
}

// Save writes c as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
