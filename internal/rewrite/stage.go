package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
	"reelsmith/internal/textutil"
)

// StageOptions controls which stories a Stage picks up.
type StageOptions struct {
	Curate bool
	SortBy string
	Limit  int
}

// Summary counts the outcomes of one Stage run.
type Summary struct {
	Rewritten int
	Skipped   int
	Failed    int
}

// Stage moves scraped stories to rewritten.
type Stage struct {
	store    *store.Store
	rewriter *Rewriter
	opts     StageOptions
	logger   *slog.Logger
}

// NewStage constructs the rewrite stage.
func NewStage(st *store.Store, rewriter *Rewriter, opts StageOptions, logger *slog.Logger) *Stage {
	return &Stage{
		store:    st,
		rewriter: rewriter,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "rewrite"),
	}
}

// Run rewrites up to opts.Limit scraped stories. A failing story is marked
// and the run continues; only store errors abort it.
func (s *Stage) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	stories, err := s.store.List(ctx, store.ListOptions{
		Statuses: []store.Status{store.StatusScraped},
		SortBy:   s.opts.SortBy,
		Limit:    s.opts.Limit,
	})
	if err != nil {
		return summary, services.Wrap(services.ErrIO, "rewrite", "list stories", "load scraped stories", err)
	}
	for _, story := range stories {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := s.processStory(ctx, story)
		switch {
		case err != nil:
			summary.Failed++
			if markErr := s.store.MarkFailed(ctx, story.ID, services.FailureStatus(err), err.Error()); markErr != nil {
				return summary, markErr
			}
		case outcome == store.StatusSkipped:
			summary.Skipped++
		default:
			summary.Rewritten++
		}
	}
	s.logger.Info("rewrite stage finished",
		logging.Int("rewritten", summary.Rewritten),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Stage) processStory(ctx context.Context, story *store.Story) (store.Status, error) {
	reelID := textutil.ReelID(story.Title)
	ctx = services.WithStage(services.WithReelID(services.WithStoryID(ctx, story.ID), reelID), "rewrite")
	logger := logging.WithContext(ctx, s.logger)
	text := story.Contents
	if strings.TrimSpace(text) == "" {
		text = story.Title + "\n" + story.Body
	}

	if s.opts.Curate {
		interesting, err := s.rewriter.IsInteresting(ctx, text)
		if err != nil {
			return "", err
		}
		if !interesting {
			logger.Info("story skipped", logging.Args(logging.DecisionAttrs("curation", "skipped", "not interesting")...)...)
			return store.StatusSkipped, s.store.MarkSkipped(ctx, story.ID, "curator verdict: not interesting")
		}
	}

	processed, err := s.rewriter.Process(ctx, text)
	if err != nil {
		return "", err
	}
	if processed == "" {
		logging.WarnWithContext(logger, "rewrite produced no story", "rewrite_empty",
			logging.String(logging.FieldErrorHint, "retry the story or inspect the model output"))
		return store.StatusSkipped, s.store.MarkSkipped(ctx, story.ID, "empty rewrite")
	}

	hashtags, err := s.rewriter.GenerateHashtags(ctx, processed, story.Subreddit)
	if err != nil {
		return "", err
	}
	if err := s.store.MarkRewritten(ctx, story.ID, reelID, processed, strings.Join(hashtags, " ")); err != nil {
		return "", fmt.Errorf("mark rewritten: %w", err)
	}
	logger.Info("story rewritten",
		logging.Int("words", textutil.WordCount(processed)),
		logging.Int("hashtags", len(hashtags)),
	)
	return store.StatusRewritten, nil
}
