package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the pipeline log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()
			emit := func(batch []string) {
				for _, line := range batch {
					if !filter.Match(line) {
						continue
					}
					if !raw {
						line = logs.Format(line)
					}
					fmt.Fprintln(out, line)
				}
			}

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			emit(result.Lines)
			for follow {
				result, err = logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 5 * time.Second})
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				emit(result.Lines)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unformatted")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.RequestID, "request", "", "Only records from one command run")
	cmd.Flags().Int64Var(&filter.StoryID, "story", 0, "Only records for one story id")
	cmd.Flags().StringVar(&filter.ReelID, "reel", "", "Only records for one reel id")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only records from one component")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Case-insensitive substring match")
	return cmd
}
