package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/calcifer-3118/yt-neural-miner/internal/cancel"
	"github.com/calcifer-3118/yt-neural-miner/internal/executor"
	"github.com/calcifer-3118/yt-neural-miner/internal/fileutil"
	"github.com/calcifer-3118/yt-neural-miner/internal/journal"
	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ytdlp"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages"
)

// StageExecutor runs one stage computation to completion, skip, or failure.
type StageExecutor interface {
	Run(ctx context.Context, req executor.Request) (*executor.Response, error)
}

// SourceClient fetches source media and metadata.
type SourceClient interface {
	Probe(ctx context.Context, url string) (*ytdlp.SourceInfo, error)
	Download(ctx context.Context, url, destDir string, progress func(ytdlp.ProgressUpdate)) error
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// Journal records stage outcomes. Satisfied by *journal.Store.
type Journal interface {
	Record(ctx context.Context, rec journal.StageRecord) error
}

// Result summarizes one pipeline run for the caller.
type Result struct {
	RunKey string
	Paths  runfs.RunPaths
	Source *ytdlp.SourceInfo
}

// Coordinator drives the fixed stage sequence for one source URL. Cached
// artifacts short-circuit their stage, skips terminate only the active
// stage, and a stage failure never aborts the run.
type Coordinator struct {
	outputRoot string

	exec     StageExecutor
	source   SourceClient
	token    *cancel.Token
	reporter *progress.Reporter
	journal  Journal
	logger   *slog.Logger
}

// New constructs a coordinator. journal may be nil when no run journal is
// wanted (workers, tests).
func New(outputRoot string, exec StageExecutor, source SourceClient, token *cancel.Token, reporter *progress.Reporter, jrnl Journal, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		outputRoot: outputRoot,
		exec:       exec,
		source:     source,
		token:      token,
		reporter:   reporter,
		journal:    jrnl,
		logger:     logger,
	}
}

// Run mines one source URL through the requested stages.
func (c *Coordinator) Run(ctx context.Context, rawURL string, requested []string) (*Result, error) {
	runKey, err := runfs.RunKey(rawURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	ctx = logging.WithRunKey(ctx, runKey)
	log := logging.WithContext(ctx, c.logger)

	paths := runfs.PathsFor(c.outputRoot, runKey)
	if err := runfs.EnsureRunDir(paths); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	lock, err := runfs.LockRun(paths)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer lock.Unlock()

	source, err := c.fetchSource(ctx, rawURL, runKey, paths, log)
	if err != nil {
		return nil, err
	}

	for _, name := range stages.Expand(requested) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desc, _ := stages.Describe(name)
		c.runStage(ctx, desc, runKey, paths, source, log)
	}

	return &Result{RunKey: runKey, Paths: paths, Source: source}, nil
}

// fetchSource makes sure video and audio exist locally and returns source
// metadata. An already-present video short-circuits the download.
func (c *Coordinator) fetchSource(ctx context.Context, rawURL, runKey string, paths runfs.RunPaths, log *slog.Logger) (*ytdlp.SourceInfo, error) {
	if runfs.Complete(paths.Video, runfs.KindMedia) {
		c.reporter.Status("Downloading", "Local File Found", 100)
		info, err := c.source.Probe(ctx, rawURL)
		if err != nil {
			log.Warn("probe failed for cached media, using placeholder metadata", logging.Error(err))
			info = &ytdlp.SourceInfo{ID: runKey, Title: fmt.Sprintf("Video %s", runKey)}
		}
		if err := c.ensureAudio(ctx, paths); err != nil {
			return nil, err
		}
		return info, nil
	}

	c.reporter.Status("Downloading", "Starting...", 0)
	info, err := c.source.Probe(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: probe source: %w", err)
	}

	err = c.source.Download(ctx, rawURL, paths.Root, func(u ytdlp.ProgressUpdate) {
		c.reporter.Percent("Downloading", int(u.Percent), 100)
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: download: %w", err)
	}

	if err := c.ensureAudio(ctx, paths); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Coordinator) ensureAudio(ctx context.Context, paths runfs.RunPaths) error {
	if fileutil.FileSize(paths.Audio) > 0 {
		return nil
	}
	c.reporter.Percent("Audio Extraction", 50, 100)
	if err := c.source.ExtractAudio(ctx, paths.Video, paths.Audio); err != nil {
		return fmt.Errorf("pipeline: extract audio: %w", err)
	}
	c.reporter.Percent("Audio Extraction", 100, 100)
	return nil
}

// runStage executes one stage: cache check, re-arm, worker run, artifact
// write. All failure paths leave the pipeline running.
func (c *Coordinator) runStage(ctx context.Context, desc stages.Descriptor, runKey string, paths runfs.RunPaths, source *ytdlp.SourceInfo, log *slog.Logger) {
	artifactPath := filepath.Join(paths.Root, desc.ArtifactName)
	log = log.With(logging.String(logging.FieldStage, string(desc.Name)))

	if runfs.Complete(artifactPath, desc.ArtifactKind) {
		c.reporter.Cached(desc.Label)
		c.record(ctx, runKey, desc, journal.StatusCached, artifactPath, "")
		return
	}

	c.reporter.Initializing(desc.Label)

	// Re-arm so an earlier skip cannot bleed into this stage.
	if c.token != nil {
		c.token.Clear()
	}

	req := executor.Request{
		Stage:  desc.Name,
		RunDir: paths.Root,
	}
	if source != nil {
		req.Title = source.Title
		req.Description = source.Description
		req.Duration = source.Duration
	}

	resp, err := c.exec.Run(ctx, req)
	if err != nil {
		log.Error("stage execution failed", logging.Error(err))
		c.failStage(ctx, runKey, desc, "", err.Error())
		return
	}
	if resp == nil {
		c.record(ctx, runKey, desc, journal.StatusSkipped, "", "")
		return
	}
	if !resp.OK {
		log.Warn("stage reported failure", logging.String("detail", resp.Error))
		c.failStage(ctx, runKey, desc, "", resp.Error)
		return
	}
	if len(resp.Artifact) == 0 {
		log.Warn("stage produced no artifact")
		c.failStage(ctx, runKey, desc, "", "empty artifact")
		return
	}

	if err := runfs.WriteArtifact(artifactPath, resp.Artifact); err != nil {
		log.Error("artifact write failed", logging.Error(err))
		c.failStage(ctx, runKey, desc, artifactPath, err.Error())
		return
	}
	if desc.AnnounceCompletion {
		c.reporter.Completed(desc.Label)
	}
	c.record(ctx, runKey, desc, journal.StatusCompleted, artifactPath, "")
	log.Info("stage complete", logging.String("artifact", desc.ArtifactName))
}

// failStage journals the failure and puts a terminal event on the progress
// stream so a supervising process always observes a decision point for the
// stage, even though the pipeline keeps going.
func (c *Coordinator) failStage(ctx context.Context, runKey string, desc stages.Descriptor, artifactPath, detail string) {
	c.reporter.Status(desc.Label, "Failed", 100)
	c.record(ctx, runKey, desc, journal.StatusFailed, artifactPath, detail)
}

func (c *Coordinator) record(ctx context.Context, runKey string, desc stages.Descriptor, status journal.Status, artifactPath, detail string) {
	if c.journal == nil {
		return
	}
	rec := journal.StageRecord{
		RunKey:       runKey,
		Stage:        string(desc.Name),
		Status:       status,
		ArtifactPath: artifactPath,
		Detail:       detail,
	}
	if status == journal.StatusCompleted && artifactPath != "" {
		if checksum, err := fileutil.SHA256File(artifactPath); err == nil {
			rec.Checksum = checksum
		}
	}
	if err := c.journal.Record(ctx, rec); err != nil {
		c.logger.Warn("journal write failed", logging.Error(err))
	}
}

// Cleanup removes a run directory after a successful sync.
func Cleanup(paths runfs.RunPaths) error {
	return os.RemoveAll(paths.Root)
}
