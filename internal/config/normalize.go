package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReddit()
	c.normalizeLLM()
	c.normalizeVideo()
	c.normalizeTTS()
	if err := c.normalizeInstagram(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		c.Paths.OutputRoot = defaultOutputRoot
	}
	if c.Paths.OutputRoot, err = expandPath(strings.TrimSpace(c.Paths.OutputRoot)); err != nil {
		return fmt.Errorf("paths.output_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.OutputRoot, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDB) == "" {
		c.Paths.StateDB = filepath.Join(c.Paths.OutputRoot, "stories.db")
	}
	if c.Paths.StateDB, err = expandPath(strings.TrimSpace(c.Paths.StateDB)); err != nil {
		return fmt.Errorf("paths.state_db: %w", err)
	}
	if strings.TrimSpace(c.Paths.PublishDir) == "" {
		c.Paths.PublishDir = filepath.Join(c.Paths.OutputRoot, "to_publish")
	}
	if c.Paths.PublishDir, err = expandPath(strings.TrimSpace(c.Paths.PublishDir)); err != nil {
		return fmt.Errorf("paths.publish_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackgroundGlob) == "" {
		c.Paths.BackgroundGlob = defaultBackgroundGlob
	}
	if c.Paths.BackgroundGlob, err = expandPath(strings.TrimSpace(c.Paths.BackgroundGlob)); err != nil {
		return fmt.Errorf("paths.background_glob: %w", err)
	}
	return nil
}

func (c *Config) normalizeReddit() {
	c.Reddit.ClientID = envFallback(c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	c.Reddit.ClientSecret = envFallback(c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	c.Reddit.UserAgent = envFallback(c.Reddit.UserAgent, "REDDIT_USER_AGENT")
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = defaultRedditUserAgent
	}
	c.Reddit.AuthURL = strings.TrimSpace(c.Reddit.AuthURL)
	if c.Reddit.AuthURL == "" {
		c.Reddit.AuthURL = defaultRedditAuthURL
	}
	c.Reddit.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.APIBaseURL), "/")
	if c.Reddit.APIBaseURL == "" {
		c.Reddit.APIBaseURL = defaultRedditAPIBaseURL
	}

	subs := make([]string, 0, len(c.Reddit.Subreddits))
	seen := make(map[string]struct{}, len(c.Reddit.Subreddits))
	for _, sub := range c.Reddit.Subreddits {
		name := strings.TrimPrefix(strings.TrimSpace(sub), "r/")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		subs = append(subs, name)
	}
	c.Reddit.Subreddits = subs

	c.Reddit.PostFilter = strings.ToLower(strings.TrimSpace(c.Reddit.PostFilter))
	if c.Reddit.PostFilter == "" {
		c.Reddit.PostFilter = defaultPostFilter
	}
	c.Reddit.TimeFilter = strings.ToLower(strings.TrimSpace(c.Reddit.TimeFilter))
	if c.Reddit.TimeFilter == "" {
		c.Reddit.TimeFilter = defaultTimeFilter
	}
	c.Reddit.SortBy = strings.ToLower(strings.TrimSpace(c.Reddit.SortBy))
	if c.Reddit.SortBy == "" {
		c.Reddit.SortBy = defaultSortBy
	}
	if c.Reddit.PostLimit <= 0 {
		c.Reddit.PostLimit = defaultPostLimit
	}
	if c.Reddit.RequestsPerMinute <= 0 {
		c.Reddit.RequestsPerMinute = defaultRequestsPerMinute
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		if c.LLM.Provider == "local" {
			c.LLM.BaseURL = defaultLocalLLMBaseURL
		} else {
			c.LLM.BaseURL = defaultLLMBaseURL
		}
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Rewrite.MaxHashtags <= 0 {
		c.Rewrite.MaxHashtags = defaultMaxHashtags
	}
	if c.Rewrite.Limit <= 0 {
		c.Rewrite.Limit = defaultRewriteLimit
	}
}

func (c *Config) normalizeVideo() {
	if c.Video.MaxWordsPerLine <= 0 {
		c.Video.MaxWordsPerLine = defaultMaxWordsPerLine
	}
	c.Video.WhisperModel = strings.TrimSpace(c.Video.WhisperModel)
	if c.Video.WhisperModel == "" {
		c.Video.WhisperModel = defaultWhisperModel
	}
	c.Video.WhisperLanguage = strings.ToLower(strings.TrimSpace(c.Video.WhisperLanguage))
	if c.Video.WhisperLanguage == "" {
		c.Video.WhisperLanguage = defaultWhisperLanguage
	}
	c.Video.HWAccel = strings.TrimSpace(c.Video.HWAccel)
	c.Video.VideoCodec = strings.TrimSpace(c.Video.VideoCodec)
	if c.Video.VideoCodec == "" {
		c.Video.VideoCodec = defaultVideoCodec
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Limit <= 0 {
		c.Video.Limit = defaultGenerateLimit
	}
	if c.Video.RenderTimeoutSecs <= 0 {
		c.Video.RenderTimeoutSecs = defaultRenderTimeout
	}
	for i := range c.CaptionCensoring {
		c.CaptionCensoring[i].Pattern = strings.TrimSpace(c.CaptionCensoring[i].Pattern)
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Package = strings.TrimSpace(c.TTS.Package)
	if c.TTS.Package == "" {
		c.TTS.Package = defaultTTSPackage
	}
	c.TTS.Language = strings.TrimSpace(c.TTS.Language)
	if c.TTS.Language == "" {
		c.TTS.Language = defaultTTSLanguage
	}
	c.TTS.FemaleVoice = strings.TrimSpace(c.TTS.FemaleVoice)
	if c.TTS.FemaleVoice == "" {
		c.TTS.FemaleVoice = defaultFemaleVoice
	}
	c.TTS.MaleVoice = strings.TrimSpace(c.TTS.MaleVoice)
	if c.TTS.MaleVoice == "" {
		c.TTS.MaleVoice = defaultMaleVoice
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeout
	}
}

func (c *Config) normalizeInstagram() error {
	c.Instagram.AppID = envFallback(c.Instagram.AppID, "INSTAGRAM_APP_ID")
	c.Instagram.AppSecret = envFallback(c.Instagram.AppSecret, "INSTAGRAM_APP_SECRET")
	c.Instagram.UserID = envFallback(c.Instagram.UserID, "INSTAGRAM_USER_ID")
	c.Instagram.Token = envFallback(c.Instagram.Token, "INSTAGRAM_TOKEN")
	if strings.TrimSpace(c.Instagram.TokenFile) == "" {
		c.Instagram.TokenFile = defaultTokenFile
	}
	var err error
	if c.Instagram.TokenFile, err = expandPath(strings.TrimSpace(c.Instagram.TokenFile)); err != nil {
		return fmt.Errorf("instagram.token_file: %w", err)
	}
	c.Instagram.GraphURL = strings.TrimRight(strings.TrimSpace(c.Instagram.GraphURL), "/")
	if c.Instagram.GraphURL == "" {
		c.Instagram.GraphURL = defaultGraphURL
	}
	c.Instagram.APIVersion = strings.TrimSpace(c.Instagram.APIVersion)
	if c.Instagram.APIVersion == "" {
		c.Instagram.APIVersion = defaultGraphAPIVersion
	}
	c.Instagram.PublicURL = strings.TrimRight(strings.TrimSpace(c.Instagram.PublicURL), "/")
	c.Instagram.NgrokBinary = strings.TrimSpace(c.Instagram.NgrokBinary)
	if c.Instagram.NgrokBinary == "" {
		c.Instagram.NgrokBinary = defaultNgrokBinary
	}
	if c.Instagram.ServePort <= 0 {
		c.Instagram.ServePort = defaultServePort
	}
	if c.Instagram.DownloadStartTimeout <= 0 {
		c.Instagram.DownloadStartTimeout = defaultDownloadStart
	}
	if c.Instagram.DownloadFinishTimeout <= 0 {
		c.Instagram.DownloadFinishTimeout = defaultDownloadFinish
	}
	if c.Instagram.StatusPollAttempts <= 0 {
		c.Instagram.StatusPollAttempts = defaultPollAttempts
	}
	if c.Instagram.StatusPollInterval < 0 {
		c.Instagram.StatusPollInterval = defaultPollInterval
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envFallback(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
