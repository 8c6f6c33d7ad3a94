package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/captions"
	"reelsmith/internal/config"
	"reelsmith/internal/store"
	"reelsmith/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadDelay(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Video.CaptionDelay = 42
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validation error for oversized caption delay")
	}
}

func TestCaptionsCommandWritesCensoredTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.CaptionCensoring = []captions.Rule{{Pattern: "darn", Replacement: "d*rn"}}
	writeTestConfig(t, env.configPath, env.cfg)

	src := testsupport.WriteFile(t, filepath.Join(env.baseDir, "story.vtt"),
		"WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nwhat the DARN\n\n00:00:02.000 --> 00:00:03.000\nsecond line\n")
	dst := filepath.Join(env.baseDir, "subs", "story.ass")

	out, _, err := runCLI(t, []string{"captions", src, dst, "--delay", "0.5"}, env.configPath)
	if err != nil {
		t.Fatalf("captions: %v", err)
	}
	requireContains(t, out, "Wrote 2 caption lines")

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	track := string(data)
	requireContains(t, track, "[Events]")
	requireContains(t, track, "Dialogue: 0,00:00:01.00,00:00:01.50,Default,,0,0,0,,what the d*rn")
	requireContains(t, track, "Dialogue: 0,00:00:01.50,00:00:02.50,Default,,0,0,0,,second line")
}

func TestCaptionsCommandLeavesNoOutputOnBadTranscript(t *testing.T) {
	env := setupCLITestEnv(t)
	src := testsupport.WriteFile(t, filepath.Join(env.baseDir, "broken.vtt"),
		"WEBVTT\n\n00:00:01.000 -> nonsense\ntext\n")
	dst := filepath.Join(env.baseDir, "broken.ass")

	if _, _, err := runCLI(t, []string{"captions", src, dst}, env.configPath); err == nil {
		t.Fatal("expected malformed transcript to fail")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}

func TestStoriesListShowAndRetry(t *testing.T) {
	env := setupCLITestEnv(t)
	st := testsupport.MustOpenStore(t, env.cfg)
	ctx := context.Background()

	first := testsupport.NewStory(t, st, "tifu", "First story", "body one")
	second := testsupport.NewStory(t, st, "AmItheAsshole", "Second story", "body two")
	if err := st.MarkFailed(ctx, second.ID, store.StatusFailed, "tts crashed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	out, _, err := runCLI(t, []string{"stories", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("stories list: %v", err)
	}
	requireContains(t, out, "First story")
	requireContains(t, out, "Second story")

	out, _, err = runCLI(t, []string{"stories", "list", "--status", "failed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("stories list --json: %v", err)
	}
	var views []storyView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(views) != 1 || views[0].ID != second.ID || views[0].Error != "tts crashed" {
		t.Fatalf("unexpected failed listing: %+v", views)
	}

	out, _, err = runCLI(t, []string{"stories", "show", strconv.FormatInt(first.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("stories show: %v", err)
	}
	requireContains(t, out, "Title:    First story")

	if _, _, err := runCLI(t, []string{"stories", "show", "9999"}, env.configPath); err == nil {
		t.Fatal("expected missing story to fail")
	}
	if _, _, err := runCLI(t, []string{"stories", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	out, _, err = runCLI(t, []string{"stories", "retry", strconv.FormatInt(second.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("stories retry: %v", err)
	}
	requireContains(t, out, "Retrying 1 stories")

	retried, err := st.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if retried.Status != store.StatusScraped || retried.ErrorMessage != "" {
		t.Fatalf("expected story back in scraped, got %s (%q)", retried.Status, retried.ErrorMessage)
	}

	out, _, err = runCLI(t, []string{"stories", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("stories status: %v", err)
	}
	requireContains(t, out, "total")
}

func TestDoctorReportsMissingTools(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without ffmpeg")
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "Missing dependencies")
}

func TestDoctorPassesWithStubbedTools(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCredentials(), testsupport.WithStubbedBinaries("ffmpeg", "ffprobe", "uvx", "ngrok"))

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "== FFmpeg ==")
	if strings.Contains(out, "Missing dependencies") {
		t.Fatalf("unexpected missing dependencies:\n%s", out)
	}
}

func TestTestNotifySendsToTopic(t *testing.T) {
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles = append(titles, r.Header.Get("Title"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = server.URL
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if len(titles) != 1 || titles[0] != "Reelsmith - Test" {
		t.Fatalf("unexpected notifications: %v", titles)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("NTFY_TOPIC", "")

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestLogsCommandFiltersRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "pipeline.log")
	testsupport.WriteFile(t, logPath, strings.Join([]string{
		`{"ts":"2026-10-17T09:00:00Z","level":"info","msg":"stories scraped","component":"ingest","request_id":"r-1"}`,
		`{"ts":"2026-10-17T09:05:00Z","level":"warn","msg":"reel generation failed","component":"reel","request_id":"r-2","story_id":3}`,
	}, "\n")+"\n")

	out, _, err := runCLI(t, []string{"logs", "--level", "warn"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "WARN  [reel] reel generation failed")
	if strings.Contains(out, "stories scraped") {
		t.Fatalf("expected info record filtered out:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--request", "r-1", "--raw"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --raw: %v", err)
	}
	requireContains(t, out, `"msg":"stories scraped"`)
}

func TestCleanRemovesPublishedIntermediates(t *testing.T) {
	env := setupCLITestEnv(t)
	st := testsupport.MustOpenStore(t, env.cfg)
	ctx := context.Background()

	story := testsupport.NewStory(t, st, "tifu", "Published story", "body")
	if err := st.MarkRewritten(ctx, story.ID, "abcdef1234", "rewritten", "#storytime"); err != nil {
		t.Fatalf("MarkRewritten: %v", err)
	}
	if err := st.MarkRendered(ctx, story.ID, filepath.Join(env.cfg.Layout().ReelsDir, "ABCDEF1234.mp4")); err != nil {
		t.Fatalf("MarkRendered: %v", err)
	}
	if err := st.MarkPublished(ctx, "ABCDEF1234", "media-1"); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}

	layout := env.cfg.Layout()
	done := testsupport.WriteFile(t, filepath.Join(layout.NarrationDir, "ABCDEF1234.wav"), "audio")
	pending := testsupport.WriteFile(t, filepath.Join(layout.NarrationDir, "FFFFFFFFFF.wav"), "audio")

	out, _, err := runCLI(t, []string{"clean", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("clean --dry-run: %v", err)
	}
	requireContains(t, out, "Would remove 1 reel artifact groups")
	if _, err := os.Stat(done); err != nil {
		t.Fatalf("dry run removed file: %v", err)
	}

	out, _, err = runCLI(t, []string{"clean"}, env.configPath)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed 1 reel artifact groups")
	if _, err := os.Stat(done); !os.IsNotExist(err) {
		t.Fatalf("expected published narration removed, stat err=%v", err)
	}
	if _, err := os.Stat(pending); err != nil {
		t.Fatalf("expected pending narration kept: %v", err)
	}
}
