package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/logging"
)

// Artifact is every file in a directory sharing one reel id.
type Artifact struct {
	ReelID  string
	Files   []string
	ModTime time.Time
	Size    int64
}

// Options selects which artifacts Clean removes. An artifact is removed when
// its reel id is in Published, or when MaxAge is positive and its newest file
// is older than MaxAge.
type Options struct {
	MaxAge    time.Duration
	Published map[string]struct{}
	DryRun    bool
}

// Result reports what Clean removed, or would remove in a dry run.
type Result struct {
	Removed []Artifact
	Freed   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// ListArtifacts groups the regular files in dir by reel id, sorted by id.
// Dotfiles are ignored. A missing directory yields no artifacts.
func ListArtifacts(dir string) ([]Artifact, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Artifact)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
		artifact, ok := byID[id]
		if !ok {
			artifact = &Artifact{ReelID: id}
			byID[id] = artifact
		}
		artifact.Files = append(artifact.Files, filepath.Join(dir, name))
		artifact.Size += info.Size()
		if info.ModTime().After(artifact.ModTime) {
			artifact.ModTime = info.ModTime()
		}
	}

	artifacts := make([]Artifact, 0, len(byID))
	for _, artifact := range byID {
		artifacts = append(artifacts, *artifact)
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].ReelID < artifacts[j].ReelID })
	return artifacts, nil
}

// Clean removes artifacts in dir selected by opts.
func Clean(ctx context.Context, dir string, opts Options, logger *slog.Logger) Result {
	var result Result
	if logger == nil {
		logger = logging.NewNop()
	}
	artifacts, err := ListArtifacts(dir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-opts.MaxAge)
	for _, artifact := range artifacts {
		if ctx.Err() != nil {
			break
		}
		_, published := opts.Published[artifact.ReelID]
		stale := opts.MaxAge > 0 && artifact.ModTime.Before(cutoff)
		if !published && !stale {
			continue
		}
		if !opts.DryRun && !removeArtifact(artifact, &result, logger) {
			continue
		}
		result.Removed = append(result.Removed, artifact)
		result.Freed += artifact.Size
		logger.Info("removed reel intermediates",
			logging.String(logging.FieldReelID, artifact.ReelID),
			logging.Int("files", len(artifact.Files)),
			logging.Bool("published", published),
			logging.Bool("dry_run", opts.DryRun),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

func removeArtifact(artifact Artifact, result *Result, logger *slog.Logger) bool {
	ok := true
	for _, path := range artifact.Files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			ok = false
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove reel intermediate", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_root permissions"),
			)
		}
	}
	return ok
}
