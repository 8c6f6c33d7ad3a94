package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

func TestConsoleLoggerFormatsSubject(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := logging.New(logging.Options{Level: "info", Format: "console", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer logging.CloseQuietly(closer)

	ctx := services.WithReelID(services.WithStage(context.Background(), "render"), "ABC1234567")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "reel")).Info("reel rendered", "duration", 41.5)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "[reel · reel ABC1234567 · render] reel rendered") {
		t.Fatalf("unexpected console line: %q", out)
	}
	if !strings.Contains(out, "duration=41.5") {
		t.Fatalf("expected attribute in console line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information at info level: %q", out)
	}
}

func TestJSONConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "debug", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("quota low", "remaining", 3)

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" || record["msg"] != "quota low" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
	if _, ok := record["source"]; !ok {
		t.Fatalf("expected source at debug level: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesRotatingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.File = true
	cfg.Logging.Level = "warn"

	logger, closer, err := logging.NewFromConfig(&cfg, io.Discard)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	ctx := services.WithStoryID(context.Background(), 42)
	logging.WithContext(ctx, logger).Debug("file only")
	if err := logging.CloseQuietly(closer); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"file only"`) || !strings.Contains(string(data), `"story_id":42`) {
		t.Fatalf("unexpected file contents: %s", data)
	}
}

func TestContextFieldsEmptyContext(t *testing.T) {
	if fields := logging.ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
	if logger := logging.WithContext(context.Background(), nil); logger == nil {
		t.Fatal("expected nop logger")
	}
}

func TestJSONLoggerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("token refreshed", "access_token", "IGQV-secret", "expires_in", 5184000)

	out := buf.String()
	if strings.Contains(out, "IGQV-secret") {
		t.Fatalf("credential leaked into log: %q", out)
	}
	if !strings.Contains(out, `"access_token":"[redacted]"`) || !strings.Contains(out, `"expires_in":5184000`) {
		t.Fatalf("unexpected record: %q", out)
	}
}
