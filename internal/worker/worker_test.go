package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calcifer-3118/yt-neural-miner/internal/config"
	"github.com/calcifer-3118/yt-neural-miner/internal/executor"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	// Unreachable model endpoints: engines must degrade, not crash.
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.LLM.TimeoutSeconds = 1
	cfg.Embedding.BaseURL = "http://127.0.0.1:1"
	return &cfg
}

func TestComputeMetadataSplicesSourceFacts(t *testing.T) {
	cfg := testConfig(t)
	runDir := filepath.Join(t.TempDir(), "dQw4w9WgXcQ")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}

	compute := Compute(cfg, progress.NewReporter(&bytes.Buffer{}), nil)
	artifact, err := compute(context.Background(), executor.Request{
		Stage:       stages.NameMetadata,
		RunDir:      runDir,
		Title:       "Song Title",
		Description: "desc",
		Duration:    180,
	})
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(artifact, &record); err != nil {
		t.Fatalf("artifact not JSON: %v", err)
	}
	if record["title"] != "Song Title" {
		t.Errorf("title not spliced: %v", record["title"])
	}
	if record["duration"] != float64(180) {
		t.Errorf("duration not spliced: %v", record["duration"])
	}
	if record["id"] != "dQw4w9WgXcQ" {
		t.Errorf("id not spliced: %v", record["id"])
	}
	// Model unreachable: fallback schema must still be complete.
	if record["movie"] != "Unknown" {
		t.Errorf("expected fallback movie, got %v", record["movie"])
	}
}

func TestComputeEmotionsShortCircuitsWithoutContext(t *testing.T) {
	cfg := testConfig(t)
	runDir := filepath.Join(t.TempDir(), "abc")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}

	compute := Compute(cfg, progress.NewReporter(&bytes.Buffer{}), nil)
	artifact, err := compute(context.Background(), executor.Request{
		Stage:  stages.NameEmotions,
		RunDir: runDir,
		Title:  "short",
	})
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if strings.TrimSpace(string(artifact)) != "[]" {
		t.Errorf("expected empty tag list, got %q", artifact)
	}
}

func TestComputeEmotionsReadsNarrativeSoftDep(t *testing.T) {
	cfg := testConfig(t)
	runDir := filepath.Join(t.TempDir(), "abc")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}
	narrative := filepath.Join(runDir, runfs.NarrativeFile)
	if err := os.WriteFile(narrative, []byte("a long narrative about heartbreak and rain"), 0o644); err != nil {
		t.Fatal(err)
	}

	compute := Compute(cfg, progress.NewReporter(&bytes.Buffer{}), nil)
	// With the narrative present the context passes the length gate and
	// the unreachable model surfaces as an error.
	if _, err := compute(context.Background(), executor.Request{
		Stage:  stages.NameEmotions,
		RunDir: runDir,
		Title:  "x",
	}); err == nil {
		t.Fatal("expected model error once narrative lengthens the context")
	}
}

func TestComputeRejectsUnknownStage(t *testing.T) {
	cfg := testConfig(t)
	compute := Compute(cfg, progress.NewReporter(&bytes.Buffer{}), nil)
	if _, err := compute(context.Background(), executor.Request{Stage: "bogus"}); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestComputeVideoFailsWithoutMedia(t *testing.T) {
	cfg := testConfig(t)
	runDir := filepath.Join(t.TempDir(), "abc")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}

	compute := Compute(cfg, progress.NewReporter(&bytes.Buffer{}), nil)
	if _, err := compute(context.Background(), executor.Request{
		Stage:  stages.NameVideo,
		RunDir: runDir,
	}); err == nil {
		t.Fatal("expected error when video file missing")
	}
}
