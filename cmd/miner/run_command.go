package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/calcifer-3118/yt-neural-miner/internal/cancel"
	"github.com/calcifer-3118/yt-neural-miner/internal/deps"
	"github.com/calcifer-3118/yt-neural-miner/internal/executor"
	"github.com/calcifer-3118/yt-neural-miner/internal/journal"
	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/pipeline"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ytdlp"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var stagesFlag []string
	var syncFlag bool
	var cleanupFlag bool
	var nonInteractive bool
	var cookiesFlag string
	var modelsDirFlag string

	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Mine a video through the stage pipeline",
		Long: `Run downloads the source video and drives the enrichment stages in
order: metadata, audio, video, emotions. Each stage executes in a worker
process; typing "skip" on stdin terminates the active stage without
aborting the run. Completed artifacts short-circuit their stage on rerun.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cookiesFlag != "" {
				cfg.Paths.CookiesFile = cookiesFlag
			}
			if modelsDirFlag != "" {
				cfg.Paths.ModelsDir = modelsDirFlag
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			runCtx = logging.WithCorrelationID(runCtx, uuid.NewString())
			logger = logging.WithContext(runCtx, logger)

			if missing, ok := deps.FirstMissing(deps.CheckBinaries(deps.Requirements(cfg))); ok {
				return fmt.Errorf("missing dependency %s: %s", missing.Name, missing.Detail)
			}
			if err := deps.CheckDiskSpace(cfg.Paths.OutputDir, cfg.Workflow.MinFreeDiskGiB); err != nil {
				return err
			}

			// Stdout carries the progress protocol; everything else goes
			// through the logger on stderr.
			reporter := progress.NewReporter(os.Stdout)

			token := new(cancel.Token)
			if !nonInteractive {
				cancel.NewListener(cmd.InOrStdin(), token, logger).Start()
			}

			source, err := ytdlp.New(
				cfg.Download.YtDlpBinary,
				cfg.Download.FFmpegBinary,
				cfg.Download.MaxHeight,
				cfg.Download.ProbeTimeout,
				cfg.Paths.CookiesFile,
			)
			if err != nil {
				return fmt.Errorf("init downloader: %w", err)
			}

			jrnl, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer jrnl.Close()

			exec, err := executor.New(executor.Options{
				WorkerArgs:   workerInvocation(ctx),
				PollInterval: time.Duration(cfg.Workflow.CancelPollMillis) * time.Millisecond,
			}, token, reporter, logger)
			if err != nil {
				return err
			}

			coord := pipeline.New(cfg.Paths.OutputDir, exec, source, token, reporter, jrnl, logger)
			result, err := coord.Run(runCtx, args[0], stagesFlag)
			if err != nil {
				return err
			}

			if !syncFlag {
				return nil
			}
			if err := runCatalogSync(runCtx, cfg, reporter, logger, result.Paths, result.Source); err != nil {
				return err
			}
			if cleanupFlag {
				if err := pipeline.Cleanup(result.Paths); err != nil {
					logger.Warn("cleanup run directory", logging.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&stagesFlag, "stages", []string{"all"}, "Stages to run (metadata, audio, video, emotions, or all)")
	cmd.Flags().BoolVar(&syncFlag, "sync", false, "Push artifacts to the catalog after the pipeline finishes")
	cmd.Flags().BoolVar(&cleanupFlag, "cleanup", false, "Remove the run directory after a successful sync")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Disable the stdin skip listener")
	cmd.Flags().StringVar(&cookiesFlag, "cookies", "", "Cookies file passed to yt-dlp")
	cmd.Flags().StringVar(&modelsDirFlag, "models-dir", "", "Override the model download directory")
	return cmd
}

// workerInvocation builds the child argv that selects worker mode. The
// resolved config path travels along so the worker loads the same file the
// parent did.
func workerInvocation(ctx *commandContext) []string {
	args := []string{"worker"}
	if path := ctx.resolvedConfigPath(); path != "" {
		args = append(args, "--config", path)
	}
	return args
}
