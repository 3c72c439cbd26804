package syncer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ytdlp"
	"github.com/calcifer-3118/yt-neural-miner/internal/store"
)

type fakeEmbedder struct {
	calls []string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, text)
	return []float64{float64(len(text))}, nil
}

type fakeCatalog struct {
	rec *store.SyncRecord
	err error
}

func (f *fakeCatalog) UpsertSong(_ context.Context, rec store.SyncRecord) error {
	if f.err != nil {
		return f.err
	}
	f.rec = &rec
	return nil
}

func writeArtifacts(t *testing.T, paths runfs.RunPaths, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(paths.Root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func testPaths(t *testing.T) runfs.RunPaths {
	t.Helper()
	return runfs.PathsFor(t.TempDir(), "dQw4w9WgXcQ")
}

func TestSyncAssemblesFullRecord(t *testing.T) {
	paths := testPaths(t)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}
	writeArtifacts(t, paths, map[string]string{
		runfs.MetadataFile:   `{"movie":"Film","singers":["V"],"language":"hi","Summary":"rich summary","title":"Rich Title","duration":200,"id":"dQw4w9WgXcQ"}`,
		runfs.TranscriptFile: "the transcript",
		runfs.NarrativeFile:  "the narrative",
		runfs.EmotionsFile:   `["romantic","nostalgic"]`,
	})

	embedder := &fakeEmbedder{}
	catalog := &fakeCatalog{}
	var out bytes.Buffer
	engine := NewEngine(embedder, catalog, progress.NewReporter(&out), nil)

	source := &ytdlp.SourceInfo{ID: "other", Title: "Source Title", Duration: 99, Description: "source desc"}
	if err := engine.Sync(context.Background(), paths, source); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	rec := catalog.rec
	if rec == nil {
		t.Fatal("no record upserted")
	}
	if rec.Title != "Rich Title" || rec.YTVideoID != "dQw4w9WgXcQ" || rec.DurationSeconds != 200 {
		t.Errorf("rich metadata should win: %+v", rec)
	}
	if rec.Summary != "rich summary" {
		t.Errorf("unexpected summary: %q", rec.Summary)
	}
	if len(rec.Emotions) != 2 {
		t.Errorf("unexpected emotions: %v", rec.Emotions)
	}
	if rec.VisualVector == nil || rec.TranscriptVector == nil || rec.CombinedVector == nil {
		t.Error("expected all three embeddings")
	}
	if len(embedder.calls) != 3 {
		t.Errorf("expected 3 embed calls, got %d", len(embedder.calls))
	}
	combined := embedder.calls[len(embedder.calls)-1]
	if !strings.Contains(combined, "Title: Rich Title") || !strings.Contains(combined, "Lyrics: the transcript") {
		t.Errorf("unexpected combined text: %q", combined)
	}
	if !strings.Contains(out.String(), "PRG:DB Sync:Generating Vectors...:50") {
		t.Errorf("missing progress: %q", out.String())
	}
	if !strings.Contains(out.String(), "PRG:DB Sync:Complete:100") {
		t.Errorf("missing completion: %q", out.String())
	}
}

func TestSyncSkipsOptionalEmbeddings(t *testing.T) {
	paths := testPaths(t)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}

	embedder := &fakeEmbedder{}
	catalog := &fakeCatalog{}
	engine := NewEngine(embedder, catalog, progress.NewReporter(&bytes.Buffer{}), nil)

	source := &ytdlp.SourceInfo{ID: "abc123", Title: "Only Source", Duration: 50}
	if err := engine.Sync(context.Background(), paths, source); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	rec := catalog.rec
	if rec.VisualVector != nil || rec.TranscriptVector != nil {
		t.Error("optional embeddings should be absent without artifacts")
	}
	if rec.CombinedVector == nil {
		t.Error("combined embedding is mandatory")
	}
	if len(embedder.calls) != 1 {
		t.Errorf("expected exactly 1 embed call, got %d", len(embedder.calls))
	}
	if rec.Title != "Only Source" || rec.YTVideoID != "abc123" {
		t.Errorf("source fallback failed: %+v", rec)
	}
	if rec.Singers[0] != "Unknown" {
		t.Errorf("expected Unknown singer, got %v", rec.Singers)
	}
}

func TestSyncFailsWhenEmbeddingFails(t *testing.T) {
	paths := testPaths(t)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(&fakeEmbedder{err: errors.New("model down")}, &fakeCatalog{}, progress.NewReporter(&bytes.Buffer{}), nil)
	if err := engine.Sync(context.Background(), paths, &ytdlp.SourceInfo{ID: "x"}); err == nil {
		t.Fatal("expected embedding failure to fail the sync")
	}
}

func TestSyncFailsWhenUpsertFails(t *testing.T) {
	paths := testPaths(t)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(&fakeEmbedder{}, &fakeCatalog{err: errors.New("db down")}, progress.NewReporter(&bytes.Buffer{}), nil)
	err := engine.Sync(context.Background(), paths, &ytdlp.SourceInfo{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected upsert failure, got %v", err)
	}
}

func TestCombinedText(t *testing.T) {
	got := CombinedText("T", "S", "V", "L")
	want := "Title: T\nSummary: S\nVisuals: V\nLyrics: L"
	if got != want {
		t.Errorf("CombinedText = %q, want %q", got, want)
	}
}
