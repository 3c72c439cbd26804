package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/services"
)

const (
	// DefaultModel balances accuracy against load time on consumer GPUs.
	DefaultModel = "small"

	// CUDADevice selects GPU inference.
	CUDADevice = "cuda"
	// CPUDevice selects CPU inference.
	CPUDevice = "cpu"
)

// Config holds transcription settings.
type Config struct {
	// Binary is the whisper CLI entry point.
	Binary string
	// Model selects the checkpoint size (tiny, small, medium, large).
	Model string
	// ModelDir overrides the checkpoint download directory when set.
	ModelDir string
	// CUDAEnabled selects GPU inference when true.
	CUDAEnabled bool
}

// Service wraps the whisper CLI for speech-to-text.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper transcription service.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Segment is one timed span of transcribed speech.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result carries the whisper output for one audio file.
type Result struct {
	// Text is the full transcript.
	Text string
	// Language is the detected ISO language code.
	Language string
	// Segments preserves per-span timing.
	Segments []Segment
	// JSONPath points at the raw whisper output file.
	JSONPath string
}

// TranscribeFile runs whisper over an audio file and loads the result.
// outputDir receives whisper's sidecar files; it defaults to the audio
// file's directory.
func (s *Service) TranscribeFile(ctx context.Context, audioPath, outputDir string) (Result, error) {
	var result Result

	if audioPath == "" {
		return result, fmt.Errorf("transcribe: audio path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(audioPath, outputDir)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "Audio", "transcribe", "whisper failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")

	payload, err := loadPayload(result.JSONPath)
	if err != nil {
		return result, fmt.Errorf("whisper: load output: %w", err)
	}
	result.Text = strings.TrimSpace(payload.Text)
	result.Language = payload.Language
	result.Segments = payload.Segments
	if result.Text == "" {
		result.Text = joinSegments(payload.Segments)
	}
	return result, nil
}

func (s *Service) buildArgs(audioPath, outputDir string) []string {
	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}

	args := []string{
		audioPath,
		"--model", model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--verbose", "False",
	}
	if s.cfg.ModelDir != "" {
		args = append(args, "--model_dir", s.cfg.ModelDir)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--fp16", "False")
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type whisperPayload struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func loadPayload(jsonPath string) (whisperPayload, error) {
	var payload whisperPayload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisper json: %w", err)
	}
	return payload, nil
}

func joinSegments(segments []Segment) string {
	var parts []string
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
