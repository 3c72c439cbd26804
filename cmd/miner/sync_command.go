package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/calcifer-3118/yt-neural-miner/internal/config"
	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/pipeline"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ollama"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ytdlp"
	"github.com/calcifer-3118/yt-neural-miner/internal/store"
	"github.com/calcifer-3118/yt-neural-miner/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var cleanupFlag bool
	var cookiesFlag string

	cmd := &cobra.Command{
		Use:   "sync <url>",
		Short: "Push existing run artifacts to the catalog",
		Long: `Sync skips the pipeline entirely and uploads whatever artifacts the run
directory already holds. When the metadata artifact is missing the source
is probed for title and duration; if probing fails too, placeholder
metadata keyed on the run identifier is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cookiesFlag != "" {
				cfg.Paths.CookiesFile = cookiesFlag
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			reporter := progress.NewReporter(os.Stdout)

			runKey, err := runfs.RunKey(args[0])
			if err != nil {
				return err
			}
			paths := runfs.PathsFor(cfg.Paths.OutputDir, runKey)

			reporter.Status("Sync", "Checking Files", 10)

			source := &ytdlp.SourceInfo{ID: runKey, Title: "Synced Video"}
			if !runfs.Complete(paths.Metadata, runfs.KindJSON) {
				if probed := probeSource(cmd.Context(), cfg, args[0], logger); probed != nil {
					source = probed
				}
			}

			if err := runCatalogSync(cmd.Context(), cfg, reporter, logger, paths, source); err != nil {
				return err
			}
			if cleanupFlag {
				if err := pipeline.Cleanup(paths); err != nil {
					logger.Warn("cleanup run directory", logging.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanupFlag, "cleanup", false, "Remove the run directory after a successful sync")
	cmd.Flags().StringVar(&cookiesFlag, "cookies", "", "Cookies file passed to yt-dlp")
	return cmd
}

func probeSource(ctx context.Context, cfg *config.Config, url string, logger *slog.Logger) *ytdlp.SourceInfo {
	client, err := ytdlp.New(
		cfg.Download.YtDlpBinary,
		cfg.Download.FFmpegBinary,
		cfg.Download.MaxHeight,
		cfg.Download.ProbeTimeout,
		cfg.Paths.CookiesFile,
	)
	if err != nil {
		logger.Warn("init downloader for probe", logging.Error(err))
		return nil
	}
	info, err := client.Probe(ctx, url)
	if err != nil {
		logger.Warn("probe source", logging.Error(err))
		return nil
	}
	return info
}

// runCatalogSync connects to the catalog and embedder and pushes one run.
// Shared by the run --sync path and the standalone sync command.
func runCatalogSync(ctx context.Context, cfg *config.Config, reporter *progress.Reporter, logger *slog.Logger, paths runfs.RunPaths, source *ytdlp.SourceInfo) error {
	connectTimeout := time.Duration(cfg.Database.ConnectTimeout) * time.Second
	catalog, err := store.Connect(ctx, cfg.Database.URL, connectTimeout)
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	defer catalog.Close()

	embedder := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})

	return syncer.NewEngine(embedder, catalog, reporter, logger).Sync(ctx, paths, source)
}
