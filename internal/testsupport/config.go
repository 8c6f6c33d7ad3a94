package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	root := filepath.Join(base, "output")
	cfgVal.Paths.OutputRoot = root
	cfgVal.Paths.LogDir = filepath.Join(root, "logs")
	cfgVal.Paths.StateDB = filepath.Join(root, "stories.db")
	cfgVal.Paths.PublishDir = filepath.Join(base, "to_publish")
	cfgVal.Paths.BackgroundGlob = filepath.Join(base, "videos", "*.mp4")
	cfgVal.Instagram.TokenFile = filepath.Join(base, "ig_token.txt")
	cfgVal.Instagram.ServePort = 0
	cfgVal.Instagram.StatusPollInterval = 0
	cfgVal.Logging.File = false

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCredentials fills every service credential with placeholder values.
func WithCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reddit.ClientID = "reddit-id"
		b.cfg.Reddit.ClientSecret = "reddit-secret"
		b.cfg.LLM.APIKey = "llm-key"
		b.cfg.Instagram.UserID = "1789"
		b.cfg.Instagram.Token = "ig-token"
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. With no names the external tools are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "uvx"}
		}
		StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), names...)
	}
}

// StubBinaries writes no-op executables into dir and prepends dir to PATH for
// the duration of the test.
func StubBinaries(t testing.TB, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputRoot)
}
