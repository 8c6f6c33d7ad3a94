package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/ingest"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/notifications"
	"reelsmith/internal/publish"
	"reelsmith/internal/reel"
	"reelsmith/internal/rewrite"
	"reelsmith/internal/services"
	"reelsmith/internal/services/instagram"
	"reelsmith/internal/services/reddit"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var subreddits []string
	var limit int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch Reddit posts into the story database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(subreddits) > 0 {
				cfg.Reddit.Subreddits = subreddits
			}
			if limit > 0 {
				cfg.Reddit.PostLimit = limit
			}
			if err := cfg.RequireReddit(); err != nil {
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
			normalizer, err := ingest.NewNormalizer(cfg.Reddit.Normalization)
			if err != nil {
				return err
			}

			var options []ingest.Option
			if cfg.Reddit.DetectToxicity || cfg.Reddit.DetectGender {
				completer, err := ctx.completer()
				if err != nil {
					return err
				}
				if cfg.Reddit.DetectToxicity {
					options = append(options, ingest.WithToxicity(ingest.NewToxicityScorer(completer)))
				}
				if cfg.Reddit.DetectGender {
					options = append(options, ingest.WithGenderDetection(rewrite.New(completer)))
				}
			}

			client := reddit.NewClient(reddit.Config{
				ClientID:          cfg.Reddit.ClientID,
				ClientSecret:      cfg.Reddit.ClientSecret,
				UserAgent:         cfg.Reddit.UserAgent,
				AuthURL:           cfg.Reddit.AuthURL,
				APIBaseURL:        cfg.Reddit.APIBaseURL,
				RequestsPerMinute: cfg.Reddit.RequestsPerMinute,
			})
			scraper := ingest.New(client, st, normalizer, ingest.OptionsFromConfig(cfg), logger, options...)
			summary, err := scraper.Run(runCtx)
			if err != nil {
				return ctx.notifyFailure(runCtx, logger, "scrape", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d posts: %d stored, %d duplicates, %d outside word limits, %d reposts\n",
				summary.Fetched, summary.Stored, summary.Duplicates, summary.OutOfRange, summary.Reposts)
			ctx.notify(runCtx, logger, notifications.EventStageCompleted, notifications.Payload{
				"stage":   "scrape",
				"summary": fmt.Sprintf("%d of %d posts stored", summary.Stored, summary.Fetched),
			})
			if summary.Failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d subreddit listings failed; see logs\n", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&subreddits, "subreddit", "s", nil, "Subreddits to scrape instead of reddit.subreddits")
	cmd.Flags().IntVar(&limit, "limit", 0, "Posts per subreddit (overrides reddit.post_limit)")
	return cmd
}

func newRewriteCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var noCurate bool

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Rewrite scraped stories into narration scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			completer, err := ctx.completer()
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
			opts := rewrite.StageOptions{
				Curate: cfg.Rewrite.Curate && !noCurate,
				SortBy: cfg.Reddit.SortBy,
				Limit:  cfg.Rewrite.Limit,
			}
			if limit > 0 {
				opts.Limit = limit
			}
			rewriter := rewrite.New(completer,
				rewrite.WithHook(cfg.Rewrite.Hook),
				rewrite.WithMaxHashtags(cfg.Rewrite.MaxHashtags),
			)
			summary, err := rewrite.NewStage(st, rewriter, opts, logger).Run(runCtx)
			if err != nil {
				return ctx.notifyFailure(runCtx, logger, "rewrite", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rewrote %d stories (%d skipped, %d failed)\n", summary.Rewritten, summary.Skipped, summary.Failed)
			ctx.notify(runCtx, logger, notifications.EventStageCompleted, notifications.Payload{
				"stage":   "rewrite",
				"summary": fmt.Sprintf("%d rewritten, %d skipped, %d failed", summary.Rewritten, summary.Skipped, summary.Failed),
			})
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum stories to rewrite (overrides rewrite.limit)")
	cmd.Flags().BoolVar(&noCurate, "no-curate", false, "Skip the curation verdict")
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render rewritten stories into reels",
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

			var gender reel.GenderDetector
			if completer, err := ctx.completer(); err == nil {
				gender = rewrite.New(completer)
			} else {
				logger.Info("narrator gender detection disabled", logging.Error(err))
			}

			opts := reel.OptionsFromConfig(cfg)
			if limit > 0 {
				opts.Limit = limit
			}
			summary, err := reel.New(st, reel.DepsFromConfig(cfg, gender), opts, logger).Run(runCtx)
			if err != nil {
				return ctx.notifyFailure(runCtx, logger, "generate", err)
			}
			out := cmd.OutOrStdout()
			for _, output := range summary.Outputs {
				fmt.Fprintf(out, "Rendered %s\n", output.Path)
				ctx.notify(runCtx, logger, notifications.EventReelRendered, notifications.Payload{
					"reelId": output.ReelID,
					"title":  output.Title,
				})
			}
			if summary.Failed > 0 {
				ctx.notify(runCtx, logger, notifications.EventError, notifications.Payload{
					"context": "generate",
					"error":   fmt.Sprintf("%d reels failed; see stories list --status failed,review", summary.Failed),
				})
			}
			fmt.Fprintf(out, "Rendered %d reels (%d failed)\n", summary.Rendered, summary.Failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum reels to render (overrides video.limit)")
	return cmd
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish rendered reels to Instagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireInstagram(); err != nil {
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
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			var tunnel publish.Tunnel = publish.NewNgrok(cfg.Instagram.NgrokBinary)
			if cfg.Instagram.PublicURL != "" {
				tunnel = publish.StaticURL(cfg.Instagram.PublicURL)
			}
			opts := publish.OptionsFromConfig(cfg)
			if strings.TrimSpace(folder) != "" {
				opts.Dir = folder
			}
			out := cmd.OutOrStdout()
			results, err := publish.New(client, ffprobe.New(cfg.FFprobeBinary()), st, tunnel, opts, logger).Run(runCtx)
			for _, result := range results {
				fmt.Fprintf(out, "Published %s as %s\n", result.File, result.MediaID)
				ctx.notify(runCtx, logger, notifications.EventReelPublished, notifications.Payload{
					"reelId":  result.ReelID,
					"mediaId": result.MediaID,
				})
			}
			if err != nil {
				return ctx.notifyFailure(runCtx, logger, "publish", err)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No new reels to publish in %s\n", opts.Dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "Folder with MP4s to upload (overrides paths.publish_dir)")
	return cmd
}

// instagramClient builds a Graph client with the token from config, the
// environment, or the token file.
func instagramClient(ctx *commandContext) (*instagram.Client, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	token := cfg.Instagram.Token
	if token == "" {
		if token, err = instagram.LoadToken(cfg.Instagram.TokenFile); err != nil {
			return nil, err
		}
	}
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "token",
			fmt.Sprintf("no access token; set instagram.token, INSTAGRAM_TOKEN, or write %s", cfg.Instagram.TokenFile), nil)
	}
	return instagram.NewClient(instagram.Config{
		GraphURL:   cfg.Instagram.GraphURL,
		APIVersion: cfg.Instagram.APIVersion,
		UserID:     cfg.Instagram.UserID,
		Token:      token,
	}), nil
}
