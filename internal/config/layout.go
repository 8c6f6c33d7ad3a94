package config

import "path/filepath"

// Layout is the on-disk artifact layout under paths.output_root.
type Layout struct {
	Root         string
	NarrationDir string
	SubtitlesDir string
	ReelsDir     string
	PublishDir   string
	LogDir       string
}

// Layout derives artifact directories from the configuration. Subtitles live
// alongside the narration they were transcribed from.
func (c *Config) Layout() Layout {
	root := c.Paths.OutputRoot
	narration := filepath.Join(root, "narration")
	return Layout{
		Root:         root,
		NarrationDir: narration,
		SubtitlesDir: narration,
		ReelsDir:     filepath.Join(root, "reels"),
		PublishDir:   c.Paths.PublishDir,
		LogDir:       c.Paths.LogDir,
	}
}

// NarrationPath returns the narration audio path for a reel.
func (l Layout) NarrationPath(reelID string) string {
	return filepath.Join(l.NarrationDir, reelID+".wav")
}

// TranscriptPath returns the word timing transcript path for a reel.
func (l Layout) TranscriptPath(reelID string) string {
	return filepath.Join(l.SubtitlesDir, reelID+".json")
}

// SubtitlePath returns the styled subtitle track path for a reel.
func (l Layout) SubtitlePath(reelID string) string {
	return filepath.Join(l.SubtitlesDir, reelID+".ass")
}

// ReelPath returns the rendered video path for a reel.
func (l Layout) ReelPath(reelID string) string {
	return filepath.Join(l.ReelsDir, reelID+".mp4")
}

// LockPath returns the lock file guarding reel generation.
func (l Layout) LockPath() string {
	return filepath.Join(l.Root, ".reelsmith.lock")
}
