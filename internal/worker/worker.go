package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/calcifer-3118/yt-neural-miner/internal/config"
	"github.com/calcifer-3118/yt-neural-miner/internal/executor"
	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ollama"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/whisper"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages/audio"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages/emotions"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages/metadata"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages/video"
)

// Compute builds the stage dispatch for a worker process. The reporter
// writes to the worker's stdout, which the coordinator forwards.
func Compute(cfg *config.Config, reporter *progress.Reporter, logger *slog.Logger) executor.ComputeFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, req executor.Request) ([]byte, error) {
		paths := runfs.PathsFor(filepath.Dir(req.RunDir), filepath.Base(req.RunDir))
		switch req.Stage {
		case stages.NameMetadata:
			return computeMetadata(ctx, cfg, req, reporter, logger)
		case stages.NameAudio:
			return computeAudio(ctx, cfg, paths, reporter, logger)
		case stages.NameVideo:
			return computeVideo(ctx, cfg, paths, req.Duration, reporter, logger)
		case stages.NameEmotions:
			return computeEmotions(ctx, cfg, paths, req.Title, reporter, logger)
		default:
			return nil, fmt.Errorf("worker: unknown stage %q", req.Stage)
		}
	}
}

func chatClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(ollama.Config{
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.ChatModel,
		ContextWindow:  cfg.LLM.ContextWindow,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}

func computeMetadata(ctx context.Context, cfg *config.Config, req executor.Request, reporter *progress.Reporter, logger *slog.Logger) ([]byte, error) {
	engine := metadata.NewEngine(chatClient(cfg), reporter, logger)
	record := engine.Extract(ctx, req.Title, req.Description)

	// The artifact carries source facts so sync never needs the probe.
	record.Title = req.Title
	record.Duration = req.Duration
	record.ID = sourceID(req)

	return json.MarshalIndent(record, "", "  ")
}

func computeAudio(ctx context.Context, cfg *config.Config, paths runfs.RunPaths, reporter *progress.Reporter, logger *slog.Logger) ([]byte, error) {
	svc := whisper.NewService(whisper.Config{
		Binary:      cfg.Whisper.Binary,
		Model:       cfg.Whisper.Model,
		ModelDir:    cfg.Paths.ModelsDir,
		CUDAEnabled: cfg.Whisper.CUDAEnabled,
	})
	engine := audio.NewEngine(svc, chatClient(cfg), reporter, logger)
	transcript, err := engine.Process(ctx, paths.Audio, paths.Root)
	if err != nil {
		return nil, err
	}
	return []byte(transcript), nil
}

func computeVideo(ctx context.Context, cfg *config.Config, paths runfs.RunPaths, duration float64, reporter *progress.Reporter, logger *slog.Logger) ([]byte, error) {
	llm := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.VisionModel,
		ContextWindow:  cfg.LLM.ContextWindow,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	engine := video.NewEngine(video.Config{
		FFmpegBinary: cfg.Download.FFmpegBinary,
	}, llm, reporter, logger)

	narrative, err := engine.Analyze(ctx, paths.Video, duration)
	if err != nil {
		return nil, err
	}
	return []byte(narrative), nil
}

func computeEmotions(ctx context.Context, cfg *config.Config, paths runfs.RunPaths, title string, reporter *progress.Reporter, logger *slog.Logger) ([]byte, error) {
	contextText := title
	if data, err := os.ReadFile(paths.Narrative); err == nil {
		contextText += string(data)
	}

	engine := emotions.NewEngine(chatClient(cfg), reporter, logger)
	tags, err := engine.Derive(ctx, contextText)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(tags, "", "  ")
}

// sourceID recovers the run key for the artifact's id field.
func sourceID(req executor.Request) string {
	return filepath.Base(req.RunDir)
}
