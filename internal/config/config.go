package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/captions"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains artifact and state locations.
type Paths struct {
	OutputRoot     string `toml:"output_root"`
	LogDir         string `toml:"log_dir"`
	StateDB        string `toml:"state_db"`
	BackgroundGlob string `toml:"background_glob"`
	PublishDir     string `toml:"publish_dir"`
}

// Reddit contains scraping configuration.
type Reddit struct {
	ClientID          string          `toml:"client_id"`
	ClientSecret      string          `toml:"client_secret"`
	UserAgent         string          `toml:"user_agent"`
	AuthURL           string          `toml:"auth_url"`
	APIBaseURL        string          `toml:"api_base_url"`
	Subreddits        []string        `toml:"subreddits"`
	PostFilter        string          `toml:"post_filter"`
	TimeFilter        string          `toml:"time_filter"`
	PostLimit         int             `toml:"post_limit"`
	MinWords          int             `toml:"min_words"`
	MaxWords          int             `toml:"max_words"`
	SortBy            string          `toml:"sort_by"`
	RequestsPerMinute int             `toml:"requests_per_minute"`
	DetectToxicity    bool            `toml:"detect_toxicity"`
	DetectGender      bool            `toml:"detect_gender"`
	RepostSimilarity  float64         `toml:"repost_similarity"`
	Normalization     []captions.Rule `toml:"normalization"`
}

// LLM contains chat completion connection settings.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Rewrite contains story rewriting options.
type Rewrite struct {
	Curate      bool `toml:"curate"`
	Hook        bool `toml:"hook"`
	MaxHashtags int  `toml:"max_hashtags"`
	Limit       int  `toml:"limit"`
}

// AudioSpeed holds the narration speed per narrator gender.
type AudioSpeed struct {
	Male   float64 `toml:"male"`
	Female float64 `toml:"female"`
}

// Video contains narration, caption, and composition settings.
type Video struct {
	CaptionDelay      float64    `toml:"caption_delay"`
	MaxWordsPerLine   int        `toml:"max_words_per_line"`
	HighlightWords    bool       `toml:"highlight_words"`
	AudioSpeed        AudioSpeed `toml:"audio_speed"`
	WhisperModel      string     `toml:"whisper_model"`
	WhisperCUDA       bool       `toml:"whisper_cuda"`
	WhisperLanguage   string     `toml:"whisper_language"`
	HWAccel           string     `toml:"hwaccel"`
	VideoCodec        string     `toml:"video_codec"`
	Preset            string     `toml:"preset"`
	CQ                int        `toml:"cq"`
	NarrationVolume   float64    `toml:"narration_volume"`
	BackgroundVolume  float64    `toml:"background_volume"`
	NarrationPadding  float64    `toml:"narration_padding"`
	Limit             int        `toml:"limit"`
	RenderTimeoutSecs int        `toml:"render_timeout_seconds"`
}

// TTS contains Kokoro narration settings.
type TTS struct {
	Package        string `toml:"package"`
	Language       string `toml:"language"`
	FemaleVoice    string `toml:"female_voice"`
	MaleVoice      string `toml:"male_voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Instagram contains Graph API publishing settings.
type Instagram struct {
	AppID                 string `toml:"app_id"`
	AppSecret             string `toml:"app_secret"`
	UserID                string `toml:"user_id"`
	Token                 string `toml:"token"`
	TokenFile             string `toml:"token_file"`
	GraphURL              string `toml:"graph_url"`
	APIVersion            string `toml:"api_version"`
	ServePort             int    `toml:"serve_port"`
	PublicURL             string `toml:"public_url"`
	NgrokBinary           string `toml:"ngrok_binary"`
	DownloadStartTimeout  int    `toml:"download_start_timeout"`
	DownloadFinishTimeout int    `toml:"download_finish_timeout"`
	StatusPollAttempts    int    `toml:"status_poll_attempts"`
	StatusPollInterval    int    `toml:"status_poll_interval"`
}

// Notifications configures ntfy alerts for stage results.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       bool   `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by stage:
//   - Paths: output root, state database, background footage, publish folder
//   - Reddit: scraping, filtering, and normalization rules
//   - LLM / Rewrite: chat completion backend and rewrite behaviour
//   - Video / CaptionCensoring: captions, narration speed, and ffmpeg settings
//   - TTS: Kokoro narration voices
//   - Instagram: Graph API publishing
//   - Notifications: ntfy topic for stage results
//   - Logging: log format, level, and file rotation
type Config struct {
	Paths            Paths           `toml:"paths"`
	Reddit           Reddit          `toml:"reddit"`
	LLM              LLM             `toml:"llm"`
	Rewrite          Rewrite         `toml:"rewrite"`
	Video            Video           `toml:"video"`
	CaptionCensoring []captions.Rule `toml:"caption_censoring"`
	TTS              TTS             `toml:"tts"`
	Instagram        Instagram       `toml:"instagram"`
	Notifications    Notifications   `toml:"notifications"`
	Logging          Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load reads .env, locates, parses, and validates a configuration file. The
// returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, invalid("parse %s: %v", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv applies KEY=value pairs from path without overriding variables
// already present in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return invalid("load %s: %v", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output layout, log, and state directories.
func (c *Config) EnsureDirectories() error {
	layout := c.Layout()
	dirs := []string{
		layout.Root,
		layout.NarrationDir,
		layout.SubtitlesDir,
		layout.ReelsDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.StateDB),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for composition.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// UVXBinary returns the uv tool runner used for Kokoro and WhisperX.
func (c *Config) UVXBinary() string {
	return "uvx"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved chat completion settings.
type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Referer  string
	Title    string
	Timeout  time.Duration
}

// GetLLM returns the chat completion connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.LLM.Provider,
		APIKey:   strings.TrimSpace(c.LLM.APIKey),
		BaseURL:  strings.TrimSpace(c.LLM.BaseURL),
		Model:    strings.TrimSpace(c.LLM.Model),
		Referer:  strings.TrimSpace(c.LLM.Referer),
		Title:    strings.TrimSpace(c.LLM.Title),
		Timeout:  time.Duration(c.LLM.TimeoutSeconds) * time.Second,
	}
}

// CaptionOptions returns the caption track options derived from config.
func (c *Config) CaptionOptions() captions.Options {
	rules := make([]captions.Rule, len(c.CaptionCensoring))
	copy(rules, c.CaptionCensoring)
	return captions.Options{Delay: c.Video.CaptionDelay, Rules: rules}
}

// ChunkOptions returns the word grouping used for caption cues.
func (c *Config) ChunkOptions() captions.ChunkOptions {
	return captions.ChunkOptions{
		MaxWordsPerLine: c.Video.MaxWordsPerLine,
		HighlightWords:  c.Video.HighlightWords,
	}
}
