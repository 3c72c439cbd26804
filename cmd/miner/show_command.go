package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/calcifer-3118/yt-neural-miner/internal/journal"
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <url>",
		Short: "Display recorded stage outcomes for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runKey, err := runfs.RunKey(args[0])
			if err != nil {
				return err
			}

			jrnl, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer jrnl.Close()

			records, err := jrnl.ListRun(cmd.Context(), runKey)
			if err != nil {
				return fmt.Errorf("list run: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No journal entries for run %s\n", runKey)
				return nil
			}

			if isatty.IsTerminal(os.Stdout.Fd()) {
				fmt.Fprintln(out, renderTable(
					[]string{"Stage", "Status", "Artifact", "Checksum", "Updated", "Detail"},
					journalRows(records),
				))
				return nil
			}
			for _, row := range journalRows(records) {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}
	return cmd
}

func journalRows(records []journal.StageRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Stage,
			string(rec.Status),
			rec.ArtifactPath,
			shortChecksum(rec.Checksum),
			rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Detail,
		})
	}
	return rows
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
