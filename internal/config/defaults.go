package config

const (
	defaultOutputRoot        = "output"
	defaultBackgroundGlob    = "videos/*.mp4"
	defaultRedditUserAgent   = "reelsmith/dev"
	defaultRedditAuthURL     = "https://www.reddit.com/api/v1/access_token"
	defaultRedditAPIBaseURL  = "https://oauth.reddit.com"
	defaultPostFilter        = "hot"
	defaultTimeFilter        = "month"
	defaultPostLimit         = 50
	defaultMinWords          = 20
	defaultMaxWords          = 300
	defaultSortBy            = "num_comments"
	defaultRequestsPerMinute = 60
	defaultRepostSimilarity  = 0.9
	defaultLLMProvider       = "openrouter"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLocalLLMBaseURL   = "http://127.0.0.1:8080/v1"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMReferer        = "https://github.com/reelsmith/reelsmith"
	defaultLLMTitle          = "reelsmith"
	defaultLLMTimeoutSeconds = 120
	defaultMaxHashtags       = 8
	defaultRewriteLimit      = 10
	defaultCaptionDelay      = 0.417
	defaultMaxWordsPerLine   = 5
	defaultAudioSpeed        = 1.0
	defaultWhisperModel      = "large-v3-turbo"
	defaultWhisperLanguage   = "en"
	defaultHWAccel           = "cuda"
	defaultVideoCodec        = "h264_nvenc"
	defaultPreset            = "p2"
	defaultCQ                = 23
	defaultNarrationVolume   = 1.5
	defaultBackgroundVolume  = 0.1
	defaultNarrationPadding  = 12.0
	defaultGenerateLimit     = 3
	defaultRenderTimeout     = 1800
	defaultTTSPackage        = "kokoro-tts"
	defaultTTSLanguage       = "en-us"
	defaultFemaleVoice       = "af_heart"
	defaultMaleVoice         = "am_michael"
	defaultTTSTimeout        = 900
	defaultTokenFile         = "ig_token.txt"
	defaultGraphURL          = "https://graph.instagram.com"
	defaultGraphAPIVersion   = "v22.0"
	defaultServePort         = 8000
	defaultNgrokBinary       = "ngrok"
	defaultDownloadStart     = 600
	defaultDownloadFinish    = 1800
	defaultPollAttempts      = 5
	defaultPollInterval      = 30
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogMaxSizeMB      = 50
	defaultLogMaxBackups     = 5
	defaultLogMaxAgeDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputRoot:     defaultOutputRoot,
			BackgroundGlob: defaultBackgroundGlob,
		},
		Reddit: Reddit{
			UserAgent:         defaultRedditUserAgent,
			AuthURL:           defaultRedditAuthURL,
			APIBaseURL:        defaultRedditAPIBaseURL,
			Subreddits:        []string{"AmItheAsshole", "tifu"},
			PostFilter:        defaultPostFilter,
			TimeFilter:        defaultTimeFilter,
			PostLimit:         defaultPostLimit,
			MinWords:          defaultMinWords,
			MaxWords:          defaultMaxWords,
			SortBy:            defaultSortBy,
			RequestsPerMinute: defaultRequestsPerMinute,
			RepostSimilarity:  defaultRepostSimilarity,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Rewrite: Rewrite{
			MaxHashtags: defaultMaxHashtags,
			Limit:       defaultRewriteLimit,
		},
		Video: Video{
			CaptionDelay:      defaultCaptionDelay,
			MaxWordsPerLine:   defaultMaxWordsPerLine,
			HighlightWords:    true,
			AudioSpeed:        AudioSpeed{Male: defaultAudioSpeed, Female: defaultAudioSpeed},
			WhisperModel:      defaultWhisperModel,
			WhisperLanguage:   defaultWhisperLanguage,
			HWAccel:           defaultHWAccel,
			VideoCodec:        defaultVideoCodec,
			Preset:            defaultPreset,
			CQ:                defaultCQ,
			NarrationVolume:   defaultNarrationVolume,
			BackgroundVolume:  defaultBackgroundVolume,
			NarrationPadding:  defaultNarrationPadding,
			Limit:             defaultGenerateLimit,
			RenderTimeoutSecs: defaultRenderTimeout,
		},
		TTS: TTS{
			Package:        defaultTTSPackage,
			Language:       defaultTTSLanguage,
			FemaleVoice:    defaultFemaleVoice,
			MaleVoice:      defaultMaleVoice,
			TimeoutSeconds: defaultTTSTimeout,
		},
		Instagram: Instagram{
			TokenFile:             defaultTokenFile,
			GraphURL:              defaultGraphURL,
			APIVersion:            defaultGraphAPIVersion,
			ServePort:             defaultServePort,
			NgrokBinary:           defaultNgrokBinary,
			DownloadStartTimeout:  defaultDownloadStart,
			DownloadFinishTimeout: defaultDownloadFinish,
			StatusPollAttempts:    defaultPollAttempts,
			StatusPollInterval:    defaultPollInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			File:       true,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
