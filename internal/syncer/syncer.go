package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ytdlp"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages/metadata"
	"github.com/calcifer-3118/yt-neural-miner/internal/store"
)

// Label is the sync phase's name on the progress protocol.
const Label = "DB Sync"

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Catalog persists assembled sync records.
type Catalog interface {
	UpsertSong(ctx context.Context, rec store.SyncRecord) error
}

// Engine merges run artifacts with source metadata, generates the
// embeddings, and pushes everything into the catalog.
type Engine struct {
	embedder Embedder
	catalog  Catalog
	reporter *progress.Reporter
	logger   *slog.Logger
}

// NewEngine constructs a sync engine.
func NewEngine(embedder Embedder, catalog Catalog, reporter *progress.Reporter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{embedder: embedder, catalog: catalog, reporter: reporter, logger: logger}
}

// Sync assembles the record for one run and upserts it. A stage artifact
// that is missing simply contributes an empty field; only the combined
// embedding and the upsert itself are hard requirements.
func (e *Engine) Sync(ctx context.Context, paths runfs.RunPaths, source *ytdlp.SourceInfo) error {
	e.reporter.Status(Label, "Connecting...", 10)
	e.reporter.Status(Label, "Loading AI Model...", 20)

	rec := assembleRecord(paths, source)

	e.reporter.Status(Label, "Generating Vectors...", 50)

	if rec.Narrative != "" {
		vec, err := e.embedder.Embed(ctx, rec.Narrative)
		if err != nil {
			return fmt.Errorf("sync: embed narrative: %w", err)
		}
		rec.VisualVector = vec
	}
	if rec.Transcript != "" {
		vec, err := e.embedder.Embed(ctx, rec.Transcript)
		if err != nil {
			return fmt.Errorf("sync: embed transcript: %w", err)
		}
		rec.TranscriptVector = vec
	}

	combined := CombinedText(rec.Title, rec.Summary, rec.Narrative, rec.Transcript)
	vec, err := e.embedder.Embed(ctx, combined)
	if err != nil {
		return fmt.Errorf("sync: embed combined: %w", err)
	}
	rec.CombinedVector = vec

	if err := e.catalog.UpsertSong(ctx, rec); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	e.reporter.Status(Label, "Complete", 100)
	e.logger.Info("sync complete",
		logging.String("ytVideoId", rec.YTVideoID),
		logging.String("title", rec.Title))
	return nil
}

// CombinedText is the canonical text embedded for whole-song retrieval.
func CombinedText(title, summary, narrative, transcript string) string {
	return fmt.Sprintf("Title: %s\nSummary: %s\nVisuals: %s\nLyrics: %s",
		title, summary, narrative, transcript)
}

// assembleRecord merges the metadata artifact with source facts. The rich
// artifact wins; source metadata fills the gaps.
func assembleRecord(paths runfs.RunPaths, source *ytdlp.SourceInfo) store.SyncRecord {
	if source == nil {
		source = &ytdlp.SourceInfo{}
	}

	var rich metadata.Record
	if data, err := os.ReadFile(paths.Metadata); err == nil {
		// A corrupt artifact degrades to source metadata.
		_ = json.Unmarshal(data, &rich)
	}

	transcript := readText(paths.Transcript)
	narrative := readText(paths.Narrative)

	var emotions []string
	if data, err := os.ReadFile(paths.Emotions); err == nil {
		_ = json.Unmarshal(data, &emotions)
	}

	title := firstNonEmpty(rich.Title, source.Title, "Unknown")
	duration := rich.Duration
	if duration <= 0 {
		duration = source.Duration
	}
	id := firstNonEmpty(rich.ID, source.ID)
	summary := firstNonEmpty(rich.Summary, source.Description)

	singers := rich.Singers
	if len(singers) == 0 {
		singers = []string{"Unknown"}
	}
	if emotions == nil {
		emotions = []string{}
	}

	return store.SyncRecord{
		Title:           title,
		YTVideoID:       id,
		DurationSeconds: int(duration),
		Movie:           rich.Movie,
		Language:        rich.Language,
		Country:         rich.Country,
		Cast:            rich.Cast,
		MusicDirector:   rich.MusicDirector,
		Lyricist:        rich.Lyricist,
		OfficialLyrics:  rich.OfficialLyrics,
		Singers:         singers,
		Summary:         summary,
		Narrative:       narrative,
		Transcript:      transcript,
		Emotions:        emotions,
	}
}

func readText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
