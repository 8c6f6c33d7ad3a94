package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/reddit"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/store"
	"reelsmith/internal/textutil"
)

// Lister fetches subreddit listings.
type Lister interface {
	Listing(ctx context.Context, req reddit.ListingRequest) ([]reddit.Post, error)
}

// Scorer rates post text for toxicity.
type Scorer interface {
	Score(ctx context.Context, text string) (map[string]float64, error)
}

// GenderDetector guesses the narrator's gender.
type GenderDetector interface {
	DetectGender(ctx context.Context, text string) (tts.Gender, error)
}

// Options selects and filters posts.
type Options struct {
	Subreddits       []string
	Filter           string
	TimeFilter       string
	Limit            int
	MinWords         int
	MaxWords         int
	RepostSimilarity float64
}

// OptionsFromConfig reads the reddit section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Subreddits:       append([]string(nil), cfg.Reddit.Subreddits...),
		Filter:           cfg.Reddit.PostFilter,
		TimeFilter:       cfg.Reddit.TimeFilter,
		Limit:            cfg.Reddit.PostLimit,
		MinWords:         cfg.Reddit.MinWords,
		MaxWords:         cfg.Reddit.MaxWords,
		RepostSimilarity: cfg.Reddit.RepostSimilarity,
	}
}

// Summary counts what happened to fetched posts.
type Summary struct {
	Fetched    int
	Stored     int
	Duplicates int
	OutOfRange int
	Reposts    int
	Failed     int
}

// Scraper runs the ingest stage.
type Scraper struct {
	lister     Lister
	store      *store.Store
	normalizer *Normalizer
	scorer     Scorer
	gender     GenderDetector
	opts       Options
	logger     *slog.Logger
}

// Option configures optional scoring.
type Option func(*Scraper)

// WithToxicity scores every accepted post.
func WithToxicity(scorer Scorer) Option {
	return func(s *Scraper) { s.scorer = scorer }
}

// WithGenderDetection records a narrator gender for every accepted post.
func WithGenderDetection(detector GenderDetector) Option {
	return func(s *Scraper) { s.gender = detector }
}

// New constructs a Scraper. normalizer may be nil.
func New(lister Lister, st *store.Store, normalizer *Normalizer, opts Options, logger *slog.Logger, options ...Option) *Scraper {
	s := &Scraper{
		lister:     lister,
		store:      st,
		normalizer: normalizer,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "ingest"),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Run scrapes every configured subreddit. Listing failures for one subreddit
// are logged and skipped unless they are configuration errors.
func (s *Scraper) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	ctx = services.WithStage(ctx, "scrape")
	known, err := s.knownFingerprints(ctx)
	if err != nil {
		return summary, err
	}
	for _, subreddit := range s.opts.Subreddits {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		posts, err := s.lister.Listing(ctx, reddit.ListingRequest{
			Subreddit:  subreddit,
			Filter:     s.opts.Filter,
			TimeFilter: s.opts.TimeFilter,
			Limit:      s.opts.Limit,
		})
		if err != nil {
			if errors.Is(err, services.ErrConfiguration) || ctx.Err() != nil {
				return summary, err
			}
			summary.Failed++
			logging.WarnWithContext(s.logger, "subreddit listing failed", "listing_failed",
				logging.String("subreddit", subreddit),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check reddit availability and rate limits"),
			)
			continue
		}
		for _, post := range posts {
			summary.Fetched++
			if err := s.ingestPost(ctx, subreddit, post, &known, &summary); err != nil {
				return summary, err
			}
		}
	}
	s.logger.Info("scrape finished",
		logging.Int("fetched", summary.Fetched),
		logging.Int("stored", summary.Stored),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("out_of_range", summary.OutOfRange),
		logging.Int("reposts", summary.Reposts),
	)
	return summary, nil
}

func (s *Scraper) ingestPost(ctx context.Context, subreddit string, post reddit.Post, known *[]*textutil.Fingerprint, summary *Summary) error {
	logger := s.logger.With(logging.String("post_id", post.ID), logging.String("subreddit", subreddit))
	existing, err := s.store.FindByURL(ctx, post.URL)
	if err != nil {
		return services.Wrap(services.ErrIO, "scrape", "lookup", "query existing story", err)
	}
	if existing != nil {
		summary.Duplicates++
		return nil
	}

	contents := s.normalizer.Contents(post.Title, post.SelfText)
	words := textutil.WordCount(contents)
	if words < s.opts.MinWords || (s.opts.MaxWords > 0 && words > s.opts.MaxWords) {
		summary.OutOfRange++
		logger.Debug("post outside word bounds", logging.Int("words", words))
		return nil
	}

	fingerprint := textutil.NewFingerprint(contents)
	if textutil.IsRepost(*known, fingerprint, s.opts.RepostSimilarity) {
		summary.Reposts++
		logger.Info("post skipped", logging.Args(logging.DecisionAttrs("repost", "skipped", "similar to a stored story")...)...)
		return nil
	}

	story := &store.Story{
		Subreddit:   subreddit,
		Title:       post.Title,
		URL:         post.URL,
		Body:        post.SelfText,
		Contents:    contents,
		Score:       post.Score,
		NumComments: post.NumComments,
		CreatedUTC:  post.CreatedUTC,
		Length:      textutil.WordCount(post.SelfText),
	}
	if s.scorer != nil {
		scores, err := s.scorer.Score(ctx, contents)
		if err != nil {
			logging.WarnWithContext(logger, "toxicity scoring failed", "toxicity_failed", logging.Error(err))
		}
		story.Toxicity = scores
	}
	if s.gender != nil {
		gender, err := s.gender.DetectGender(ctx, contents)
		if err != nil {
			logging.WarnWithContext(logger, "gender detection failed; defaulting to male", "gender_failed", logging.Error(err))
		}
		story.NarratorGender = string(gender)
	}

	stored, inserted, err := s.store.AddScraped(ctx, story)
	if err != nil {
		return services.Wrap(services.ErrIO, "scrape", "store", "persist story", err)
	}
	if inserted {
		summary.Stored++
		*known = append(*known, fingerprint)
		logger.Debug("story stored", logging.Int64(logging.FieldStoryID, stored.ID), logging.Int("words", words))
	} else {
		summary.Duplicates++
	}
	return nil
}

func (s *Scraper) knownFingerprints(ctx context.Context) ([]*textutil.Fingerprint, error) {
	if s.opts.RepostSimilarity <= 0 {
		return nil, nil
	}
	stories, err := s.store.List(ctx, store.ListOptions{})
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "scrape", "fingerprints", "load stored stories", err)
	}
	known := make([]*textutil.Fingerprint, 0, len(stories))
	for _, story := range stories {
		text := story.Contents
		if strings.TrimSpace(text) == "" {
			text = story.Title + "\n" + story.Body
		}
		if fp := textutil.NewFingerprint(text); fp != nil {
			known = append(known, fp)
		}
	}
	return known, nil
}
