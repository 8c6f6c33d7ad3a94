package config

import (
	"fmt"
	"math"
	"strings"

	"reelsmith/internal/captions"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

var (
	validPostFilters = map[string]bool{"hot": true, "new": true, "top": true, "controversial": true}
	validTimeFilters = map[string]bool{"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true}
	validProviders   = map[string]bool{"openrouter": true, "local": true}
)

// Validate ensures the configuration is usable. Credentials are checked by
// the Require* helpers so commands that never touch a service still run.
func (c *Config) Validate() error {
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateInstagram(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "https://") && !strings.HasPrefix(topic, "http://") {
		return invalid("notifications.ntfy_topic must be a full http(s) topic URL")
	}
	return nil
}

func (c *Config) validateReddit() error {
	if !validPostFilters[c.Reddit.PostFilter] {
		return invalid("reddit.post_filter %q must be one of hot, new, top, controversial", c.Reddit.PostFilter)
	}
	if !validTimeFilters[c.Reddit.TimeFilter] {
		return invalid("reddit.time_filter %q must be one of hour, day, week, month, year, all", c.Reddit.TimeFilter)
	}
	if !store.ValidSortKey(c.Reddit.SortBy) {
		return invalid("reddit.sort_by %q must be one of num_comments, score, created_utc, length", c.Reddit.SortBy)
	}
	if c.Reddit.MinWords < 0 || c.Reddit.MaxWords < 0 {
		return invalid("reddit.min_words and reddit.max_words must be >= 0")
	}
	if c.Reddit.MinWords > c.Reddit.MaxWords {
		return invalid("reddit.min_words (%d) must not exceed reddit.max_words (%d)", c.Reddit.MinWords, c.Reddit.MaxWords)
	}
	if c.Reddit.RepostSimilarity < 0 || c.Reddit.RepostSimilarity > 1 {
		return invalid("reddit.repost_similarity must be between 0 and 1")
	}
	if _, err := captions.NewCensor(c.Reddit.Normalization); err != nil {
		return invalid("reddit.normalization: %v", err)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !validProviders[c.LLM.Provider] {
		return invalid("llm.provider %q must be openrouter or local", c.LLM.Provider)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if err := captions.ValidateDelay(c.Video.CaptionDelay); err != nil {
		return invalid("video.caption_delay: %v", err)
	}
	if _, err := captions.NewCensor(c.CaptionCensoring); err != nil {
		return invalid("caption_censoring: %v", err)
	}
	for key, value := range map[string]float64{
		"video.audio_speed.male":   c.Video.AudioSpeed.Male,
		"video.audio_speed.female": c.Video.AudioSpeed.Female,
	} {
		if math.IsNaN(value) || value <= 0 {
			return invalid("%s must be positive", key)
		}
	}
	for key, value := range map[string]float64{
		"video.narration_volume":  c.Video.NarrationVolume,
		"video.background_volume": c.Video.BackgroundVolume,
		"video.narration_padding": c.Video.NarrationPadding,
	} {
		if math.IsNaN(value) || value < 0 {
			return invalid("%s must be >= 0", key)
		}
	}
	if c.Video.CQ < 0 || c.Video.CQ > 51 {
		return invalid("video.cq must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateInstagram() error {
	if c.Instagram.ServePort > 65535 {
		return invalid("instagram.serve_port must be a valid TCP port")
	}
	if c.Instagram.PublicURL != "" && !strings.HasPrefix(c.Instagram.PublicURL, "https://") {
		return invalid("instagram.public_url must be an https URL")
	}
	return nil
}

// RequireReddit reports missing Reddit API credentials.
func (c *Config) RequireReddit() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return invalid("reddit.client_id and reddit.client_secret are required (or set REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET)")
	}
	if len(c.Reddit.Subreddits) == 0 {
		return invalid("reddit.subreddits must include at least one subreddit")
	}
	return nil
}

// RequireLLM reports missing chat completion credentials.
func (c *Config) RequireLLM() error {
	if c.LLM.Provider == "openrouter" && c.LLM.APIKey == "" {
		return invalid("llm.api_key is required for the openrouter provider (or set OPENROUTER_API_KEY)")
	}
	return nil
}

// RequireInstagram reports missing publishing credentials. The access token
// may come from config, INSTAGRAM_TOKEN, or the token file.
func (c *Config) RequireInstagram() error {
	if c.Instagram.UserID == "" {
		return invalid("instagram.user_id is required (or set INSTAGRAM_USER_ID)")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "config", "", fmt.Sprintf(format, args...), nil)
}
