package video

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ollama"
)

// Label is the stage's name on the progress protocol. Kept distinct from
// the stage key because the analysis loop historically reports under it.
const Label = "Video Analysis"

const (
	// defaultChunkSeconds gives long chunks for narrative continuity on
	// short-form sources.
	defaultChunkSeconds = 45
	// defaultFramesPerChunk caps the vision payload per request.
	defaultFramesPerChunk = 8
	// frameWidth keeps frames small enough for the vision model.
	frameWidth = 640
	// contextTail carries the last part of the previous scene into the
	// next prompt.
	contextTail = 200
)

// Config holds frame extraction settings.
type Config struct {
	FFmpegBinary   string
	FFprobeBinary  string
	ChunkSeconds   int
	FramesPerChunk int
}

// Engine narrates the video by sampling frames per time chunk, describing
// each chunk with a vision model, then distilling a master story summary.
type Engine struct {
	cfg      Config
	llm      *ollama.Client
	reporter *progress.Reporter
	logger   *slog.Logger

	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewEngine constructs a video engine. llm must be configured with a
// vision-capable model.
func NewEngine(cfg Config, llm *ollama.Client, reporter *progress.Reporter, logger *slog.Logger) *Engine {
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.FFprobeBinary == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = defaultChunkSeconds
	}
	if cfg.FramesPerChunk <= 0 {
		cfg.FramesPerChunk = defaultFramesPerChunk
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{cfg: cfg, llm: llm, reporter: reporter, logger: logger}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Engine) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	e.commandRunner = runner
}

type chunk struct {
	start, end float64
	dir        string
}

// Analyze produces the narrative artifact for videoPath. durationSeconds
// may be zero, in which case the engine probes the container.
func (e *Engine) Analyze(ctx context.Context, videoPath string, durationSeconds float64) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("video: source missing: %w", err)
	}

	if durationSeconds <= 0 {
		probed, err := e.probeDuration(ctx, videoPath)
		if err != nil {
			return "", fmt.Errorf("video: probe duration: %w", err)
		}
		durationSeconds = probed
	}

	framesRoot := filepath.Join(filepath.Dir(videoPath), "frames_cache")
	if err := os.RemoveAll(framesRoot); err != nil {
		return "", fmt.Errorf("video: reset frames cache: %w", err)
	}
	if err := os.MkdirAll(framesRoot, 0o755); err != nil {
		return "", fmt.Errorf("video: create frames cache: %w", err)
	}
	defer os.RemoveAll(framesRoot)

	chunks, err := e.extractChunks(ctx, videoPath, framesRoot, durationSeconds)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("video: no frames extracted")
	}

	var sceneLog []string
	for i, ch := range chunks {
		e.reporter.Percent(Label, i*100/len(chunks), 100)

		desc, err := e.describeChunk(ctx, ch, sceneLog)
		if err != nil {
			e.logger.Warn("chunk analysis failed",
				logging.Int("chunk", i+1), logging.Error(err))
			continue
		}
		stamped := fmt.Sprintf("[Time: %ds-%ds] %s", int(ch.start), int(ch.end), desc)
		sceneLog = append(sceneLog, stamped)
		os.RemoveAll(ch.dir)
	}
	if len(sceneLog) == 0 {
		return "", fmt.Errorf("video: no narrative generated")
	}

	e.reporter.Status(Label, "Generating Summary...", 100)
	combined := strings.Join(sceneLog, "\n")
	summary, err := e.summarize(ctx, combined)
	if err != nil {
		e.logger.Warn("master summary failed", logging.Error(err))
		summary = fmt.Sprintf("Summary generation failed: %v", err)
	}

	e.reporter.Percent(Label, 100, 100)
	return fmt.Sprintf("=== MASTER STORY SUMMARY ===\n%s\n\n=== SCENE-BY-SCENE LOG ===\n%s\n", summary, combined), nil
}

// extractChunks samples frames for each time chunk with ffmpeg.
func (e *Engine) extractChunks(ctx context.Context, videoPath, framesRoot string, duration float64) ([]chunk, error) {
	chunkDur := float64(e.cfg.ChunkSeconds)
	numChunks := int(math.Ceil(duration / chunkDur))
	if numChunks < 1 {
		numChunks = 1
	}

	var chunks []chunk
	for idx := 0; idx < numChunks; idx++ {
		start := float64(idx) * chunkDur
		end := math.Min(start+chunkDur, duration)
		if end <= start {
			break
		}

		dir := filepath.Join(framesRoot, fmt.Sprintf("chunk_%03d", idx))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("video: create chunk dir: %w", err)
		}

		span := end - start
		frames := int(span)
		if frames > e.cfg.FramesPerChunk {
			frames = e.cfg.FramesPerChunk
		}
		if frames < 1 {
			frames = 1
		}
		step := span / float64(frames)

		extracted := 0
		for k := 0; k < frames; k++ {
			mark := start + float64(k)*step
			out := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", k))
			args := []string{
				"-y", "-loglevel", "error",
				"-ss", fmt.Sprintf("%.2f", mark),
				"-i", videoPath,
				"-frames:v", "1",
				"-vf", fmt.Sprintf("scale=%d:-2", frameWidth),
				out,
			}
			if _, err := e.run(ctx, e.cfg.FFmpegBinary, args...); err != nil {
				e.logger.Warn("frame extraction failed",
					logging.Float64("mark", mark), logging.Error(err))
				continue
			}
			if info, err := os.Stat(out); err == nil && info.Size() > 0 {
				extracted++
			}
		}
		if extracted > 0 {
			chunks = append(chunks, chunk{start: start, end: end, dir: dir})
		}
	}
	return chunks, nil
}

func (e *Engine) describeChunk(ctx context.Context, ch chunk, sceneLog []string) (string, error) {
	images, err := loadFrames(ch.dir)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no frames in chunk")
	}

	var prompt strings.Builder
	if len(sceneLog) > 0 {
		prev := sceneLog[len(sceneLog)-1]
		if len(prev) > contextTail {
			prev = prev[len(prev)-contextTail:]
		}
		fmt.Fprintf(&prompt, "PREVIOUSLY: %s.\n", prev)
	}
	fmt.Fprintf(&prompt, `Describe this video segment (%ds to %ds).
Focus on:
1. Action flow (What is happening?)
2. Visual atmosphere (Lighting, Colors).
3. Character interactions and emotions.
`, int(ch.start), int(ch.end))

	content, err := e.llm.ChatStream(ctx, []ollama.Message{
		{Role: "user", Content: prompt.String(), Images: images},
	}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (e *Engine) summarize(ctx context.Context, sceneLogs string) (string, error) {
	prompt := fmt.Sprintf(`Read the following scene logs from a video and write a COMPLETE STORY SUMMARY.

INSTRUCTIONS:
1. Write a single, cohesive narrative (like a short story).
2. Ignore timestamps. Connect the events logically.
3. Describe the beginning, the middle conflict/action, and the ending resolution.
4. Capture the mood and character motivations.

SCENE LOGS:
%s

COMPLETE STORY:
`, sceneLogs)

	content, err := e.llm.ChatStream(ctx, []ollama.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (e *Engine) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	out, err := e.run(ctx, e.cfg.FFprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		videoPath,
	)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(out), 64)
}

func (e *Engine) run(ctx context.Context, name string, args ...string) (string, error) {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// loadFrames reads chunk frames as base64 payloads in frame order.
func loadFrames(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var images []string
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return images, nil
}
