package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calcifer-3118/yt-neural-miner/internal/cancel"
	"github.com/calcifer-3118/yt-neural-miner/internal/executor"
	"github.com/calcifer-3118/yt-neural-miner/internal/journal"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ytdlp"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages"
)

type fakeExecutor struct {
	responses map[stages.Name]*executor.Response
	requests  []executor.Request
	err       error
}

func (f *fakeExecutor) Run(_ context.Context, req executor.Request) (*executor.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[req.Stage], nil
}

type fakeSource struct {
	info        *ytdlp.SourceInfo
	probeErr    error
	downloads   int
	extractions int
}

func (f *fakeSource) Probe(_ context.Context, _ string) (*ytdlp.SourceInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.info, nil
}

func (f *fakeSource) Download(_ context.Context, _, destDir string, progressFn func(ytdlp.ProgressUpdate)) error {
	f.downloads++
	if progressFn != nil {
		progressFn(ytdlp.ProgressUpdate{Percent: 42})
	}
	return os.WriteFile(filepath.Join(destDir, runfs.VideoFile), bytes.Repeat([]byte("v"), 2048), 0o644)
}

func (f *fakeSource) ExtractAudio(_ context.Context, _, audioPath string) error {
	f.extractions++
	return os.WriteFile(audioPath, []byte("audio"), 0o644)
}

type fakeJournal struct {
	records []journal.StageRecord
}

func (f *fakeJournal) Record(_ context.Context, rec journal.StageRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeJournal) statuses() map[string]journal.Status {
	out := make(map[string]journal.Status)
	for _, rec := range f.records {
		out[rec.Stage] = rec.Status
	}
	return out
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func allOK() map[stages.Name]*executor.Response {
	emotions, _ := json.Marshal([]string{"romantic"})
	return map[stages.Name]*executor.Response{
		stages.NameMetadata: {OK: true, Artifact: []byte(`{"movie":"Film"}`)},
		stages.NameAudio:    {OK: true, Artifact: []byte("the transcript")},
		stages.NameVideo:    {OK: true, Artifact: []byte("the narrative")},
		stages.NameEmotions: {OK: true, Artifact: emotions},
	}
}

func TestRunExecutesAllStagesInOrder(t *testing.T) {
	root := t.TempDir()
	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ", Title: "Song", Duration: 200, Description: "desc"}}
	jrnl := &fakeJournal{}
	var out bytes.Buffer

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&out), jrnl, nil)
	result, err := coord.Run(context.Background(), testURL, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunKey != "dQw4w9WgXcQ" {
		t.Errorf("unexpected run key: %q", result.RunKey)
	}

	var got []stages.Name
	for _, req := range exec.requests {
		got = append(got, req.Stage)
		if req.Title != "Song" || req.Duration != 200 {
			t.Errorf("source facts not forwarded: %+v", req)
		}
	}
	want := stages.Order()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
	}

	for _, name := range []string{runfs.MetadataFile, runfs.TranscriptFile, runfs.NarrativeFile, runfs.EmotionsFile} {
		if _, err := os.Stat(filepath.Join(result.Paths.Root, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}

	statuses := jrnl.statuses()
	for _, name := range stages.Order() {
		if statuses[string(name)] != journal.StatusCompleted {
			t.Errorf("stage %s journal status = %s", name, statuses[string(name)])
		}
	}

	lines := out.String()
	if !strings.Contains(lines, "PRG:Metadata:Initializing...:0") {
		t.Errorf("missing initializing event: %q", lines)
	}
	if !strings.Contains(lines, "PRG:Metadata:100:100") {
		t.Errorf("missing completion event: %q", lines)
	}
	if !strings.Contains(lines, "PRG:Downloading:42:100") {
		t.Errorf("missing download progress: %q", lines)
	}
	if !strings.Contains(lines, "PRG:Audio Extraction:100:100") {
		t.Errorf("missing audio extraction event: %q", lines)
	}
}

func TestRunSkipsCachedStages(t *testing.T) {
	root := t.TempDir()
	paths := runfs.PathsFor(root, "dQw4w9WgXcQ")
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.Metadata, []byte(`{"movie":"Cached"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}
	jrnl := &fakeJournal{}
	var out bytes.Buffer

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&out), jrnl, nil)
	if _, err := coord.Run(context.Background(), testURL, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, req := range exec.requests {
		if req.Stage == stages.NameMetadata {
			t.Error("cached metadata stage should not execute")
		}
	}
	if !strings.Contains(out.String(), "PRG:Metadata:Cached:100") {
		t.Errorf("missing cached event: %q", out.String())
	}
	if jrnl.statuses()["metadata"] != journal.StatusCached {
		t.Errorf("expected cached journal status, got %v", jrnl.statuses())
	}
}

func TestRunTrivialArtifactDoesNotCountAsCached(t *testing.T) {
	root := t.TempDir()
	paths := runfs.PathsFor(root, "dQw4w9WgXcQ")
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}
	// Invalid JSON fails the non-triviality check.
	if err := os.WriteFile(paths.Metadata, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&bytes.Buffer{}), nil, nil)
	if _, err := coord.Run(context.Background(), testURL, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ran := false
	for _, req := range exec.requests {
		if req.Stage == stages.NameMetadata {
			ran = true
		}
	}
	if !ran {
		t.Error("trivial artifact should force re-execution")
	}
}

func TestRunContinuesAfterStageFailure(t *testing.T) {
	root := t.TempDir()
	responses := allOK()
	responses[stages.NameAudio] = &executor.Response{OK: false, Error: "model exploded"}

	exec := &fakeExecutor{responses: responses}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}
	jrnl := &fakeJournal{}
	var out bytes.Buffer

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&out), jrnl, nil)
	result, err := coord.Run(context.Background(), testURL, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, statErr := os.Stat(result.Paths.Transcript); statErr == nil {
		t.Error("failed stage should not write an artifact")
	}
	if _, statErr := os.Stat(result.Paths.Narrative); statErr != nil {
		t.Error("later stage should still run after a failure")
	}
	if jrnl.statuses()["audio"] != journal.StatusFailed {
		t.Errorf("expected failed status, got %v", jrnl.statuses())
	}
	if !strings.Contains(out.String(), "PRG:Audio:Failed:100") {
		t.Errorf("failed stage must emit a terminal event, got %q", out.String())
	}
}

func TestRunEmitsTerminalEventOnExecutorError(t *testing.T) {
	root := t.TempDir()
	exec := &fakeExecutor{err: errors.New("spawn failed")}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}
	jrnl := &fakeJournal{}
	var out bytes.Buffer

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&out), jrnl, nil)
	if _, err := coord.Run(context.Background(), testURL, []string{"metadata"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if jrnl.statuses()["metadata"] != journal.StatusFailed {
		t.Errorf("expected failed status, got %v", jrnl.statuses())
	}
	if !strings.Contains(out.String(), "PRG:Metadata:Failed:100") {
		t.Errorf("executor error must emit a terminal event, got %q", out.String())
	}
}

func TestRunRecordsSkippedStages(t *testing.T) {
	root := t.TempDir()
	responses := allOK()
	responses[stages.NameVideo] = nil // skip

	exec := &fakeExecutor{responses: responses}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}
	jrnl := &fakeJournal{}

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&bytes.Buffer{}), jrnl, nil)
	if _, err := coord.Run(context.Background(), testURL, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if jrnl.statuses()["video"] != journal.StatusSkipped {
		t.Errorf("expected skipped status, got %v", jrnl.statuses())
	}
	if jrnl.statuses()["emotions"] != journal.StatusCompleted {
		t.Errorf("stage after skip should complete, got %v", jrnl.statuses())
	}
}

func TestRunSubsetKeepsFixedOrder(t *testing.T) {
	root := t.TempDir()
	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&bytes.Buffer{}), nil, nil)
	if _, err := coord.Run(context.Background(), testURL, []string{"emotions", "metadata"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(exec.requests) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(exec.requests))
	}
	if exec.requests[0].Stage != stages.NameMetadata || exec.requests[1].Stage != stages.NameEmotions {
		t.Errorf("unexpected order: %v", exec.requests)
	}
}

func TestRunReusesLocalMedia(t *testing.T) {
	root := t.TempDir()
	paths := runfs.PathsFor(root, "dQw4w9WgXcQ")
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.Video, bytes.Repeat([]byte("v"), 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{info: &ytdlp.SourceInfo{ID: "dQw4w9WgXcQ"}}
	var out bytes.Buffer

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&out), nil, nil)
	if _, err := coord.Run(context.Background(), testURL, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if source.downloads != 0 {
		t.Error("local media should short-circuit the download")
	}
	if source.extractions != 1 {
		t.Error("audio should still be extracted from local media")
	}
	if !strings.Contains(out.String(), "PRG:Downloading:Local File Found:100") {
		t.Errorf("missing local-file event: %q", out.String())
	}
}

func TestRunFallsBackWhenProbeFailsOnCachedMedia(t *testing.T) {
	root := t.TempDir()
	paths := runfs.PathsFor(root, "dQw4w9WgXcQ")
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.Video, bytes.Repeat([]byte("v"), 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{probeErr: errors.New("network down")}

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&bytes.Buffer{}), nil, nil)
	result, err := coord.Run(context.Background(), testURL, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Source.ID != "dQw4w9WgXcQ" {
		t.Errorf("expected placeholder source, got %+v", result.Source)
	}
}

func TestRunFailsWhenDownloadImpossible(t *testing.T) {
	root := t.TempDir()
	exec := &fakeExecutor{responses: allOK()}
	source := &fakeSource{probeErr: errors.New("network down")}

	coord := New(root, exec, source, new(cancel.Token), progress.NewReporter(&bytes.Buffer{}), nil, nil)
	if _, err := coord.Run(context.Background(), testURL, nil); err == nil {
		t.Fatal("expected error when probe fails with no local media")
	}
}
