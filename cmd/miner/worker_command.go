package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calcifer-3118/yt-neural-miner/internal/executor"
	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/worker"
)

// newWorkerCommand is the hidden child-process entry point. The coordinator
// spawns `miner worker` per stage: the request arrives on stdin, progress
// lines leave on stdout, and the JSON result goes back on the inherited
// pipe at fd 3.
func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run one stage computation (internal)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			result := executor.OpenResultPipe()
			if result == nil {
				return fmt.Errorf("worker: result pipe unavailable")
			}
			defer result.Close()

			reporter := progress.NewReporter(os.Stdout)
			compute := worker.Compute(cfg, reporter, logger)
			return executor.RunWorker(cmd.Context(), os.Stdin, result, compute)
		},
	}
}
