package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
	"reelsmith/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configKind, configMsg := statusOK, ctx.configPath
			if !ctx.configExists {
				configKind, configMsg = statusWarn, fmt.Sprintf("%s not found; using defaults", ctx.configPath)
			}
			lines = append(lines, renderStatusLine("Config", configKind, configMsg, colorize))
			lines = append(lines, credentialLine("Reddit", cfg.RequireReddit(), colorize))
			lines = append(lines, credentialLine("LLM", cfg.RequireLLM(), colorize))
			lines = append(lines, credentialLine("Instagram", cfg.RequireInstagram(), colorize))

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(statuses, colorize)...)

			if ffmpegAvailable(statuses, cfg.FFmpegBinary()) {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("FFmpeg", colorize)...)
				for _, feature := range deps.CheckFFmpegFeatures(cmd.Context(), cfg.FFmpegBinary(), cfg.Video.VideoCodec, nil) {
					kind, message := statusOK, "Available"
					if !feature.Available {
						kind, message = statusWarn, feature.Detail
					}
					lines = append(lines, renderStatusLine(feature.Name, kind, message, colorize))
				}
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "check",
					fmt.Sprintf("%d required tools missing", len(missing)), nil)
			}
			return nil
		},
	}
}

func credentialLine(label string, err error, colorize bool) string {
	if err != nil {
		return renderStatusLine(label, statusWarn, err.Error(), colorize)
	}
	return renderStatusLine(label, statusOK, "configured", colorize)
}

func ffmpegAvailable(statuses []deps.Status, binary string) bool {
	for _, status := range statuses {
		if status.Command == binary {
			return status.Available
		}
	}
	return false
}
