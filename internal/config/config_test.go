package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate clears every variable Load consults and points the user config
// at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvDB, EnvAddr, EnvLogLevel, EnvOpenAIKey, EnvOpenAIBaseURL} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(t.TempDir())
	return dir
}

func TestUserPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := UserPath(), "/custom/config/aig/config.yml"; got != want {
		t.Errorf("UserPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := UserPath(), filepath.Join(home, ".config", "aig", "config.yml"); got != want {
		t.Errorf("UserPath() = %q, want %q", got, want)
	}
}

func TestPath_Precedence(t *testing.T) {
	xdg := isolate(t)

	if got, want := Path(), filepath.Join(xdg, Dir, File); got != want {
		t.Errorf("Path() without files = %q, want %q", got, want)
	}

	if err := os.WriteFile(LocalFile, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Path(); got != LocalFile {
		t.Errorf("Path() with local file = %q, want %q", got, LocalFile)
	}

	t.Setenv(EnvConfig, "/etc/aig.yml")
	if got := Path(); got != "/etc/aig.yml" {
		t.Errorf("Path() with %s = %q", EnvConfig, got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Backend != BackendSQLite {
		t.Errorf("Database.Backend = %q", cfg.Database.Backend)
	}
	if cfg.Layout.Radius != 300 || cfg.Layout.MinSeparation != 180 || cfg.Layout.MaxAttempts != 5 {
		t.Errorf("Layout = %+v, want standard constants", cfg.Layout)
	}
	if cfg.Layout.ToolRing != 1.5 || cfg.Layout.PaperRing != 1.8 {
		t.Errorf("rings = %v/%v, want 1.5/1.8", cfg.Layout.ToolRing, cfg.Layout.PaperRing)
	}
	if cfg.Server.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.Server.SessionTTL)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "aig.yml")
	data := `
database:
  backend: memory
server:
  addr: ":9000"
  session_ttl: 5m
layout:
  radius: 400
  seed: 99
enrichment:
  provider: static
  topic_count: 7
  min_score: 0.5
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAddr, ":9100")
	t.Setenv(EnvOpenAIKey, "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Backend != BackendMemory {
		t.Errorf("Database.Backend = %q, want memory", cfg.Database.Backend)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("Server.Addr = %q, want env override :9100", cfg.Server.Addr)
	}
	if cfg.Server.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v, want 5m", cfg.Server.SessionTTL)
	}
	if cfg.Layout.Radius != 400 || cfg.Layout.Seed != 99 {
		t.Errorf("Layout radius/seed = %v/%v", cfg.Layout.Radius, cfg.Layout.Seed)
	}
	if cfg.Layout.MinSeparation != 180 {
		t.Errorf("unset layout field lost its default: %v", cfg.Layout.MinSeparation)
	}
	if cfg.Enrichment.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Enrichment.APIKey)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}

	ex := cfg.ExpandConfig()
	if ex.TopicCount != 7 || ex.MinScore != 0.5 {
		t.Errorf("ExpandConfig() = %+v", ex)
	}
	if len(ex.Targets) == 0 {
		t.Error("ExpandConfig() lost default targets")
	}

	if got := cfg.Redacted().Enrichment.APIKey; got != "***" {
		t.Errorf("Redacted APIKey = %q", got)
	}
	if cfg.Enrichment.APIKey != "sk-test" {
		t.Error("Redacted modified the original")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"backend", "database:\n  backend: postgres\n"},
		{"provider", "enrichment:\n  provider: crystal-ball\n"},
		{"min score", "enrichment:\n  min_score: 2\n"},
		{"child band", "layout:\n  child_min: 300\n  child_max: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "aig.yml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "aig.yml")
	if err := os.WriteFile(path, []byte("database: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := Default()
	cfg.Server.Addr = ":7000"
	cfg.Layout.Seed = 5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Server.Addr != ":7000" || got.Layout.Seed != 5 {
		t.Errorf("round trip lost values: %+v", got.Server)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)

	if err := LoadDotEnv(""); err != nil {
		t.Errorf("LoadDotEnv() without file = %v", err)
	}

	if err := os.WriteFile(".env", []byte("AIG_ADDR=:8181\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv(EnvAddr)
	t.Cleanup(func() { os.Unsetenv(EnvAddr) })

	if err := LoadDotEnv(""); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(EnvAddr); got != ":8181" {
		t.Errorf("%s = %q, want :8181", EnvAddr, got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	tests := map[string]string{
		"":            "",
		"/abs/db":     "/abs/db",
		"rel/db":      "rel/db",
		"~":           home,
		"~/data/a.db": filepath.Join(home, "data/a.db"),
		"~other/x":    "~other/x",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
