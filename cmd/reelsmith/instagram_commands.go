package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/services/instagram"
)

func newInstagramCommand(ctx *commandContext) *cobra.Command {
	igCmd := &cobra.Command{
		Use:   "instagram",
		Short: "Instagram account utilities",
	}
	igCmd.AddCommand(&cobra.Command{
		Use:   "refresh-token",
		Short: "Refresh the long-lived access token and save it to the token file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := instagramClient(ctx)
			if err != nil {
				return err
			}
			runCtx, logger, err := ctx.requestContext(cmd)
			if err != nil {
				return err
			}
			token, lifetime, err := client.RefreshToken(runCtx)
			if err != nil {
				return err
			}
			if err := instagram.SaveToken(cfg.Instagram.TokenFile, token); err != nil {
				return err
			}
			expires := time.Now().Add(lifetime).Format(time.DateOnly)
			logger.Info("instagram token refreshed", "token_file", cfg.Instagram.TokenFile, "expires", expires)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved refreshed token to %s (expires around %s)\n", cfg.Instagram.TokenFile, expires)
			return nil
		},
	})
	return igCmd
}
