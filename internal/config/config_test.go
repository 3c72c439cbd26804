package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calcifer-3118/yt-neural-miner/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config file, resolved %s", resolved)
	}
	if cfg.Download.MaxHeight != 720 {
		t.Fatalf("expected default max_height 720, got %d", cfg.Download.MaxHeight)
	}
	if cfg.Workflow.CancelPollMillis != 100 {
		t.Fatalf("expected default cancel poll 100ms, got %d", cfg.Workflow.CancelPollMillis)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[logging]",
		`format = "JSON"`,
		`level = "DEBUG"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging fields not normalized: %+v", cfg.Logging)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"fancy\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unsupported log format")
	}
}

func TestDatabaseURLEnvFallback(t *testing.T) {
	t.Setenv("MINER_DB_URL", "postgres://env/miner")
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgres://env/miner" {
		t.Fatalf("expected env database url, got %q", cfg.Database.URL)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if _, err := config.WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}
