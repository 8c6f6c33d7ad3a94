package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/captions"
	"reelsmith/internal/logging"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var delay float64
	var noCensor bool

	cmd := &cobra.Command{
		Use:   "captions <transcript.vtt> <output.ass>",
		Short: "Convert a WebVTT transcript into a shifted, censored ASS track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			_, logger, err := ctx.requestContext(cmd)
			if err != nil {
				return err
			}
			opts := cfg.CaptionOptions()
			if cmd.Flags().Changed("delay") {
				opts.Delay = delay
			}
			if noCensor {
				opts.Rules = nil
			}
			track, err := captions.BuildFile(args[0], args[1], opts)
			if err != nil {
				return err
			}
			logger.Info("caption track written",
				logging.String("source", args[0]),
				logging.String("destination", args[1]),
				logging.Int("lines", track.Len()),
				logging.Float64("delay_seconds", opts.Delay),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d caption lines to %s\n", track.Len(), args[1])
			return nil
		},
	}
	cmd.Flags().Float64Var(&delay, "delay", 0, "Seconds to shift captions earlier (overrides video.caption_delay)")
	cmd.Flags().BoolVar(&noCensor, "no-censor", false, "Skip caption_censoring rules")
	return cmd
}
