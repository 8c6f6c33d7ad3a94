package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, including parents, with content.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteBackgrounds creates placeholder clips matching cfg's background glob.
func WriteBackgrounds(t testing.TB, dir string, names ...string) []string {
	t.Helper()

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, WriteFile(t, filepath.Join(dir, name), "background"))
	}
	return paths
}
