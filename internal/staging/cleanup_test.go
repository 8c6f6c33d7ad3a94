package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelsmith/internal/logging"
)

func writeArtifact(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if age > 0 {
		when := time.Now().Add(-age)
		if err := os.Chtimes(path, when, when); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}
	return path
}

func TestCleanInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := Clean(context.Background(), dir, Options{MaxAge: time.Hour}, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestListArtifactsGroupsByReelID(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "AAAAAAAAAA.wav", 0)
	writeArtifact(t, dir, "AAAAAAAAAA.ass", 0)
	writeArtifact(t, dir, "BBBBBBBBBB.json", 0)
	writeArtifact(t, dir, ".reelsmith.lock", 0)

	artifacts, err := ListArtifacts(dir)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %+v", artifacts)
	}
	if artifacts[0].ReelID != "AAAAAAAAAA" || len(artifacts[0].Files) != 2 || artifacts[0].Size != 8 {
		t.Fatalf("unexpected first artifact: %+v", artifacts[0])
	}
}

func TestCleanRemovesStaleAndPublished(t *testing.T) {
	dir := t.TempDir()
	stale := writeArtifact(t, dir, "OLD0000000.wav", 48*time.Hour)
	published := writeArtifact(t, dir, "PUB0000000.ass", 0)
	fresh := writeArtifact(t, dir, "NEW0000000.wav", 0)

	result := Clean(context.Background(), dir, Options{
		MaxAge:    24 * time.Hour,
		Published: map[string]struct{}{"PUB0000000": {}},
	}, logging.NewNop())

	if len(result.Removed) != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Freed != 8 {
		t.Fatalf("expected 8 bytes freed, got %d", result.Freed)
	}
	for _, path := range []string{stale, published} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected %s removed", path)
		}
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("expected %s kept: %v", fresh, err)
	}
}

func TestCleanDryRunKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "OLD0000000.wav", 48*time.Hour)

	result := Clean(context.Background(), dir, Options{MaxAge: time.Hour, DryRun: true}, logging.NewNop())
	if len(result.Removed) != 1 {
		t.Fatalf("expected dry run to report 1 artifact, got %+v", result)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("dry run removed %s: %v", path, err)
	}
}
