package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelsmith/internal/staging"
	"reelsmith/internal/store"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove narration, transcripts, and staged copies of published or stale reels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, logger, err := ctx.requestContext(cmd)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			stories, err := st.List(runCtx, store.ListOptions{Statuses: []store.Status{store.StatusPublished}})
			if err != nil {
				return err
			}
			published := make(map[string]struct{}, len(stories))
			for _, story := range stories {
				if story.ReelID != "" {
					published[story.ReelID] = struct{}{}
				}
			}

			layout := cfg.Layout()
			results := []staging.Result{
				staging.Clean(runCtx, layout.NarrationDir, staging.Options{MaxAge: maxAge, Published: published, DryRun: dryRun}, logger),
				// Unpublished reels in the publish folder are still pending upload.
				staging.Clean(runCtx, layout.PublishDir, staging.Options{Published: published, DryRun: dryRun}, logger),
			}

			out := cmd.OutOrStdout()
			var removed int
			var freed int64
			for _, result := range results {
				removed += len(result.Removed)
				freed += result.Freed
				for _, cleanupErr := range result.Errors {
					fmt.Fprintf(out, "Could not remove %s: %v\n", cleanupErr.Path, cleanupErr.Error)
				}
			}
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			fmt.Fprintf(out, "%s %d reel artifact groups (%s)\n", verb, removed, humanize.Bytes(uint64(freed)))
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 7*24*time.Hour, "Also remove intermediates older than this (0 disables)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed")
	return cmd
}
