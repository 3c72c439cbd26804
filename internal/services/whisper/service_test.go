package whisper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTranscribeFileLoadsOutput(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(audioPath, []byte("fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(Config{Binary: "whisper", Model: "small"})

	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "whisper" {
			t.Errorf("expected whisper binary, got %q", name)
		}
		gotArgs = args
		payload := whisperPayload{
			Text:     " hello world ",
			Language: "en",
			Segments: []Segment{{Text: "hello world", Start: 0, End: 2.5}},
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "audio.json"), data, 0o644)
	})

	result, err := svc.TranscribeFile(context.Background(), audioPath, dir)
	if err != nil {
		t.Fatalf("TranscribeFile failed: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("expected trimmed text, got %q", result.Text)
	}
	if result.Language != "en" {
		t.Errorf("expected language en, got %q", result.Language)
	}
	if len(result.Segments) != 1 {
		t.Errorf("expected 1 segment, got %d", len(result.Segments))
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "--model small") {
		t.Errorf("expected model flag in args: %v", gotArgs)
	}
	if !strings.Contains(joined, "--output_format json") {
		t.Errorf("expected json output format in args: %v", gotArgs)
	}
}

func TestTranscribeFileFallsBackToSegments(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(audioPath, []byte("fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(Config{})
	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		payload := whisperPayload{
			Segments: []Segment{{Text: " first "}, {Text: "second"}},
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "audio.json"), data, 0o644)
	})

	result, err := svc.TranscribeFile(context.Background(), audioPath, dir)
	if err != nil {
		t.Fatalf("TranscribeFile failed: %v", err)
	}
	if result.Text != "first second" {
		t.Errorf("expected joined segment text, got %q", result.Text)
	}
}

func TestDeviceArgsFollowCUDAFlag(t *testing.T) {
	cpu := NewService(Config{}).buildArgs("audio.mp3", "out")
	if !strings.Contains(strings.Join(cpu, " "), "--device cpu") {
		t.Errorf("expected cpu device: %v", cpu)
	}
	gpu := NewService(Config{CUDAEnabled: true}).buildArgs("audio.mp3", "out")
	if !strings.Contains(strings.Join(gpu, " "), "--device cuda") {
		t.Errorf("expected cuda device: %v", gpu)
	}
}

func TestModelDirFlagOnlyWhenConfigured(t *testing.T) {
	plain := NewService(Config{}).buildArgs("audio.mp3", "out")
	if strings.Contains(strings.Join(plain, " "), "--model_dir") {
		t.Errorf("unexpected model_dir flag: %v", plain)
	}
	custom := NewService(Config{ModelDir: "/models"}).buildArgs("audio.mp3", "out")
	if !strings.Contains(strings.Join(custom, " "), "--model_dir /models") {
		t.Errorf("expected model_dir flag: %v", custom)
	}
}

func TestTranscribeFileRequiresAudioPath(t *testing.T) {
	svc := NewService(Config{})
	if _, err := svc.TranscribeFile(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty audio path")
	}
}
